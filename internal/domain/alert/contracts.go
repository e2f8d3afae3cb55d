package alert

// RawMessage is one decoded alert payload from the ingestion transport.
// It is transient input and never persisted as-is.
type RawMessage struct {
	IP   string
	Text string
}

// HostData is the best-effort inventory view of a host. Every field except
// IP may be absent when the lookup failed or the inventory knows nothing.
type HostData struct {
	IP       string   `json:"ip"`
	Hostname *string  `json:"hostname"`
	Role     *string  `json:"role"`
	Model    *string  `json:"model"`
	Location *string  `json:"location"`
	Services []string `json:"services"`
}

// Message is one ingested alert occurrence. EventID is a back-reference set
// exactly once by correlation; it stays nil until the owning event is known.
type Message struct {
	MessageID uint64  `json:"id"`
	Text      string  `json:"text"`
	EventID   *uint64 `json:"event_id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// Event is a de-duplicated record of one ongoing or resolved condition on a
// host, keyed by (IP, Name). Status true means open, false means resolved;
// it reflects only the most recently attributed message.
type Event struct {
	EventID      uint64   `json:"id"`
	IP           string   `json:"ip"`
	Name         string   `json:"name"`
	Hostname     *string  `json:"hostname"`
	Role         *string  `json:"role"`
	Model        *string  `json:"model"`
	Location     *string  `json:"location"`
	Services     []string `json:"services"`
	Status       bool     `json:"status"`
	MessageCount int64    `json:"message_count"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// BucketCount is one non-empty aggregation bucket on the epoch grid.
type BucketCount struct {
	BucketStart string `json:"bucket_start"`
	Count       int64  `json:"count"`
}

// MinuteCount is one non-empty calendar-minute bucket.
type MinuteCount struct {
	Minute string `json:"minute"`
	Count  int64  `json:"count"`
}
