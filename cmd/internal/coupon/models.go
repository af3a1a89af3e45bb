package coupon

// generateRequest is the inbound contract for POST /coupon/generate.
type generateRequest struct {
	Payload requestPayload `json:"payload"`
}

type requestPayload struct {
	EmailAddress     string `json:"emailAddress"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	SubscriptionName string `json:"subscriptionName"`
	ItemID           string `json:"itemId"`
	IsEventixEvent   string `json:"isEventixEvent"`
}

type generateResponse struct {
	CouponCode string `json:"couponCode"`
	Message    string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// User-facing message strings. The "already issued" case is a 200 with
// an empty code, not an error, by long-standing front-end contract.
const (
	msgCodeIssued     = "Hey, here is your Discount Code!"
	msgAlreadyIssued  = "Sorry, you already generated a Discount Code!"
	msgNoSubscription = "The user does not have an active subscription."
	msgNoCodesLeft    = "No available discount codes."
	msgTryAgain       = "High demand right now, please try again."
	msgInternal       = "Something went wrong. Please try again later."
)
