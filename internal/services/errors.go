// Package services defines the business logic for posts.
// This file centralizes the user-facing messages the service layer attaches
// to the errors it raises, so handlers and tests can refer to them by name.
package services

// Validation messages.
const (
	MsgInvalidID       = "ID inválido"
	MsgRequiredFields  = "Campos obrigatórios não preenchidos"
	MsgTitleRequired   = "Título é obrigatório"
	MsgContentRequired = "Conteúdo é obrigatório"
	MsgAuthorRequired  = "Autor é obrigatório"
	MsgQueryRequired   = "Query de busca é obrigatória"
)

// Not-found messages.
const (
	MsgPostNotFound  = "Post não encontrado"
	MsgPostsNotFound = "Nenhum post encontrado"
)

// Context attached to wrapped storage failures.
const (
	wrapList   = "Erro ao buscar posts"
	wrapGet    = "Erro ao buscar post"
	wrapCreate = "Erro ao criar post"
	wrapUpdate = "Erro ao atualizar post"
	wrapDelete = "Erro ao deletar post"
	wrapSearch = "Erro ao pesquisar posts"
)
