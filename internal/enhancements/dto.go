package enhancements

type createRequest struct {
	SourceDocumentID string `json:"sourceDocumentId" form:"sourceDocumentId"`
	OwnerID          string `json:"ownerId" form:"ownerId"`
	Content          string `json:"content" form:"content"`
}

type createResponse struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

type listResponse struct {
	Items  []Record `json:"items"`
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
}
