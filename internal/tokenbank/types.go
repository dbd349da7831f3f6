package tokenbank

// BalanceResponse ответ на запрос остатка аккаунта.
type BalanceResponse struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

// TransferRequest запрос на перевод средств.
type TransferRequest struct {
	From   string `json:"from,omitempty"` // пусто — перевод с аккаунта движка
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ApproveRequest запрос на выдачу allowance.
type ApproveRequest struct {
	Spender string `json:"spender"`
	Amount  uint64 `json:"amount"`
}

// OperationResponse общий ответ токен-банка на мутирующие операции.
// Операции атомарны: статус отличный от "ok" означает, что средства не двигались.
type OperationResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
