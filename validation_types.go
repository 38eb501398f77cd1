package tyrell

// Severity indicates how serious a validation warning is
type Severity string

const (
	SeverityInfo    Severity = "info"    // Informational (might be expected)
	SeverityWarning Severity = "warning" // Potentially problematic
	SeverityError   Severity = "error"   // Likely to cause API failure
)

// WarningCode is a machine-readable identifier for validation warnings
type WarningCode string

const (
	// Model warnings
	WarningCodeModelUnknown WarningCode = "MODEL_UNKNOWN"

	// Tool warnings
	WarningCodeModelDoesNotSupportTools WarningCode = "MODEL_DOES_NOT_SUPPORT_TOOLS"
	WarningCodeToolChoiceUnknownTool    WarningCode = "TOOL_CHOICE_UNKNOWN_TOOL"
	WarningCodeToolChoiceWithoutTools   WarningCode = "TOOL_CHOICE_WITHOUT_TOOLS"
	WarningCodeDuplicateToolName        WarningCode = "DUPLICATE_TOOL_NAME"

	// Vision warnings
	WarningCodeVisionUnsupported WarningCode = "VISION_UNSUPPORTED"

	// Parameter warnings
	WarningCodeTemperatureOutOfRange WarningCode = "TEMPERATURE_OUT_OF_RANGE"
	WarningCodeTopPOutOfRange        WarningCode = "TOP_P_OUT_OF_RANGE"
	WarningCodeTopKOutOfRange        WarningCode = "TOP_K_OUT_OF_RANGE"
	WarningCodeMaxTokensTooHigh      WarningCode = "MAX_TOKENS_TOO_HIGH"

	// Conversation warnings
	WarningCodeFirstMessageNotUser WarningCode = "FIRST_MESSAGE_NOT_USER"
	WarningCodeOrphanToolResult    WarningCode = "ORPHAN_TOOL_RESULT"
)

// ValidationWarning represents a potential issue that might cause API failure.
// These are informational: Client.Call logs them and sends the request anyway.
type ValidationWarning struct {
	Code     WarningCode // Machine-readable code
	Category string      // "model", "tool", "parameter", "vision", "conversation"
	Field    string      // Field that might cause issues
	Value    any         // The potentially problematic value
	Message  string      // Human-readable warning
	Severity Severity    // How serious this warning is
}

// ValidationRule interface allows adding custom validation logic
type ValidationRule interface {
	// Name returns a human-readable name for this rule
	Name() string

	// Check validates a request and returns warnings
	Check(req *Request) []ValidationWarning
}
