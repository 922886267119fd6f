package roblox

// sortContentResponse is the explore API sort content payload.
type sortContentResponse struct {
	Games []sortContentGame `json:"games"`
}

// sortContentGame is one trending listing entry. Vote totals only appear
// here; the details endpoint does not repeat them.
type sortContentGame struct {
	UniverseID     int64  `json:"universeId"`
	RootPlaceID    int64  `json:"rootPlaceId"`
	Name           string `json:"name"`
	PlayerCount    int64  `json:"playerCount"`
	TotalUpVotes   int64  `json:"totalUpVotes"`
	TotalDownVotes int64  `json:"totalDownVotes"`
}

// gameDetailsResponse is the games API batch details payload.
type gameDetailsResponse struct {
	Data []gameDetail `json:"data"`
}

type gameDetail struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Creator     struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"creator"`
	Genre          string `json:"genre"`
	Visits         int64  `json:"visits"`
	FavoritedCount int64  `json:"favoritedCount"`
	Playing        int64  `json:"playing"`
	Created        string `json:"created"`
	Updated        string `json:"updated"`
}

// socialLinksResponse is the games API social links payload.
type socialLinksResponse struct {
	Data []socialLink `json:"data"`
}

type socialLink struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}
