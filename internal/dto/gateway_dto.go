package dto

// SendRequest is the body of POST /send.
type SendRequest struct {
	Secret    string `json:"secret"`
	GroupName string `json:"groupName"`
	Message   string `json:"message"`
}

type SendResponse struct {
	OK       bool   `json:"ok"`
	Skipped  bool   `json:"skipped,omitempty"`
	Reason   string `json:"reason,omitempty"`
	EnviadoA string `json:"enviadoA,omitempty"`
	Retried  bool   `json:"retried,omitempty"`
}

// ErrorResponse is the body of every non-2xx JSON response. Error keeps the
// legacy code or text clients already match on.
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Hint   string `json:"hint,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// GroupNotFoundResponse always carries the group list, even when empty.
type GroupNotFoundResponse struct {
	ErrorResponse
	GruposDisponibles []string `json:"gruposDisponibles"`
}

type HealthResponse struct {
	OK            bool   `json:"ok"`
	WhatsappReady bool   `json:"whatsappReady"`
	State         string `json:"state"`
}

// SessionEventMessage is what /ws subscribers receive.
type SessionEventMessage struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt string                 `json:"occurred_at"`
	Instance   string                 `json:"instance,omitempty"`
}
