package apiv1

// Pong is the ping response.
type Pong struct {
	Ping string `json:"ping"`
}

// PlanInfo describes one purchasable plan.
type PlanInfo struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Price   int64  `json:"price"`
	Credits int64  `json:"credits"`
}

// PlanList is the plans response.
type PlanList struct {
	Plans []PlanInfo `json:"plans"`
}
