package ticketprovider

// PriceResponse ответ сервиса на запрос цены билета.
type PriceResponse struct {
	Price uint64 `json:"price"`
}

// PurchaseRequest запрос на покупку билетов.
type PurchaseRequest struct {
	Referrer  string `json:"referrer"`
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
}

// PurchaseResponse ответ сервиса на покупку билетов.
type PurchaseResponse struct {
	Status  string `json:"status"`
	Tickets uint64 `json:"tickets,omitempty"`
	Error   string `json:"error,omitempty"`
}
