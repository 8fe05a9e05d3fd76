package apiv1

// Pong is the body of GET /ping.
type Pong struct {
	Ping string `json:"ping"`
}
