package request

type UpdateBookingStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=cancelled completed no_show"`
	Reason string `json:"reason"`
}
