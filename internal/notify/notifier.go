// Package notify is the operator notification sink: severity, title,
// description, fire-and-forget. No acknowledgment is returned and no send
// failure ever propagates to the caller.
package notify

import "log/slog"

type Severity string

const (
	SeverityNormal      Severity = "normal"
	SeverityDestructive Severity = "destructive"
)

type Notifier interface {
	Notify(severity Severity, title, description string)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(severity Severity, title, description string) {
	if severity == SeverityDestructive {
		n.log.Warn("notification", "title", title, "description", description)
		return
	}
	n.log.Info("notification", "title", title, "description", description)
}

// Multi fans a notification out to every sink.
type Multi []Notifier

func (m Multi) Notify(severity Severity, title, description string) {
	for _, n := range m {
		n.Notify(severity, title, description)
	}
}
