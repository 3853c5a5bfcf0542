// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// ユーザー向けメッセージはサイトの利用者に合わせてポルトガル語で持つ。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, channel, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeMissingFields      = "MISSING_FIELDS"
	ErrCodeInvalidEmail       = "INVALID_EMAIL"
	ErrCodeWeakPassword       = "WEAK_PASSWORD"
	ErrCodePasswordMismatch   = "PASSWORD_MISMATCH"
	ErrCodeInvalidName        = "INVALID_NAME"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAdminDenied        = "ADMIN_DENIED"
	ErrCodeUserRejected       = "USER_REJECTED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeChannelNotFound    = "CHANNEL_NOT_FOUND"
	ErrCodeInvalidCategory    = "INVALID_CATEGORY"
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodeInvalidLink        = "INVALID_LINK"
	ErrCodeInvalidImage       = "INVALID_IMAGE"
	ErrCodeInvalidStatus      = "INVALID_STATUS"
	ErrCodeListingNotFound    = "LISTING_NOT_FOUND"
	ErrCodeInvalidFilter      = "INVALID_FILTER"
	ErrCodeAgeNotVerified     = "AGE_NOT_VERIFIED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "Requisição inválida.",
		Category: "validation",
		Action:   "Envie os dados no formato correto.",
	}
}

// NewMissingFieldsError は必須項目の未入力エラーを生成する。
func NewMissingFieldsError(fields ...string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  fmt.Sprintf("Campos obrigatórios não informados: %v", fields),
		Category: "validation",
		Action:   "Preencha todos os campos obrigatórios.",
	}
}

// NewInvalidEmailError はメールアドレス形式エラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "Email inválido.",
		Category: "validation",
		Action:   "Informe um email no formato nome@dominio.com.",
	}
}

// NewWeakPasswordError はパスワード長不足エラーを生成する。
func NewWeakPasswordError(minLen int) *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  fmt.Sprintf("A senha deve ter pelo menos %d caracteres.", minLen),
		Category: "validation",
		Action:   "Escolha uma senha mais longa.",
	}
}

// NewPasswordMismatchError は確認用パスワード不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "As senhas não coincidem.",
		Category: "validation",
		Action:   "Digite a mesma senha nos dois campos.",
	}
}

// NewInvalidNameError は名前の長さ不足エラーを生成する。
func NewInvalidNameError(minLen int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidName,
		Message:  fmt.Sprintf("O nome deve ter pelo menos %d caracteres.", minLen),
		Category: "validation",
		Action:   "Informe seu nome completo.",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "Email já cadastrado.",
		Category: "auth",
		Action:   "Faça login ou use outro email.",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールの存在有無を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Email ou senha incorretos.",
		Category: "auth",
		Action:   "Verifique seus dados e tente novamente.",
	}
}

// NewAdminDeniedError は管理者ログイン拒否エラーを生成する。
func NewAdminDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminDenied,
		Message:  "Acesso negado.",
		Category: "auth",
		Action:   "Use uma conta de administrador.",
	}
}

// NewUserRejectedError は拒否済みユーザーのログインエラーを生成する。
func NewUserRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeUserRejected,
		Message:  "Sua conta foi recusada pela moderação.",
		Category: "auth",
		Action:   "Entre em contato com o suporte.",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Token não fornecido.",
		Category: "auth",
		Action:   "Faça login para continuar.",
	}
}

// NewInvalidTokenError は無効/期限切れトークンエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "Token inválido.",
		Category: "auth",
		Action:   "Faça login novamente.",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Acesso restrito a administradores.",
		Category: "auth",
		Action:   "Faça login com uma conta de administrador.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "Usuário não encontrado.",
		Category: "auth",
		Action:   "Faça login novamente.",
	}
}

// NewChannelNotFoundError はチャンネル未検出エラーを生成する。
// 他ユーザーのチャンネルも存在しないものとして扱う。
func NewChannelNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeChannelNotFound,
		Message:  fmt.Sprintf("Canal não encontrado: %d", id),
		Category: "channel",
		Action:   "Verifique o canal selecionado.",
	}
}

// NewInvalidCategoryError は未知のカテゴリ指定エラーを生成する。
func NewInvalidCategoryError(category string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCategory,
		Message:  fmt.Sprintf("Categoria inválida: %s", category),
		Category: "validation",
		Action:   "Escolha uma das categorias disponíveis.",
	}
}

// NewInvalidStateError は未知の州コード指定エラーを生成する。
func NewInvalidStateError(state string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  fmt.Sprintf("Estado inválido: %s", state),
		Category: "validation",
		Action:   "Use a sigla de um dos estados disponíveis.",
	}
}

// NewInvalidLinkError はチャンネルリンクの形式エラーを生成する。
func NewInvalidLinkError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLink,
		Message:  fmt.Sprintf("Link inválido: %s", reason),
		Category: "validation",
		Action:   "Informe um link https do Telegram ou WhatsApp.",
	}
}

// NewInvalidImageError はアップロード画像の制約違反エラーを生成する。
func NewInvalidImageError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImage,
		Message:  fmt.Sprintf("Imagem inválida: %s", reason),
		Category: "validation",
		Action:   "Apenas imagens JPEG, PNG, GIF ou WEBP de até 5MB são permitidas.",
	}
}

// NewInvalidStatusError は未知のモデレーション状態指定エラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("Status inválido: %s", status),
		Category: "validation",
		Action:   "Use active, pending ou rejected.",
	}
}

// NewListingNotFoundError はカタログ上のグループ未検出エラーを生成する。
func NewListingNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeListingNotFound,
		Message:  fmt.Sprintf("Grupo não encontrado: %d", id),
		Category: "catalog",
		Action:   "Atualize a página e tente novamente.",
	}
}

// NewInvalidFilterError は無効なフィルタ指定エラーを生成する。
func NewInvalidFilterError(filter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("Filtro inválido: %s", filter),
		Category: "validation",
		Action:   "Limpe os filtros e tente novamente.",
	}
}

// NewAgeNotVerifiedError は年齢確認未完了エラーを生成する。
func NewAgeNotVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeAgeNotVerified,
		Message:  "Conteúdo restrito a maiores de 18 anos.",
		Category: "auth",
		Action:   "Confirme sua idade para continuar.",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Muitas requisições.",
		Category: "system",
		Action:   "Aguarde alguns instantes e tente novamente.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Erro interno do servidor.",
		Category: "system",
		Action:   "Tente novamente em alguns instantes.",
	}
}
