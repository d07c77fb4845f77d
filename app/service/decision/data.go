package decision

type Queue string

const (
	QueueNone       Queue = "none"
	QueueAdmin      Queue = "admin"
	QueueCommercial Queue = "commercial"
)

// Decision is the engine's answer for one message: which bloc to render and
// whether the conversation leaves the bot. It is created per call and not
// retained.
type Decision struct {
	BlocID              string   `json:"bloc_id"`
	Priority            int      `json:"priority"`
	ShouldEscalate      bool     `json:"should_escalate"`
	EscalateQueue       Queue    `json:"escalate_queue"`
	ConfirmationPending bool     `json:"confirmation_pending"`
	SearchHints         []string `json:"search_hints"`
}

// topic context keys for the payment thread, accumulated across turns
const (
	ctxFinancingType = "financing_type"
	ctxElapsedDays   = "elapsed_days"
)
