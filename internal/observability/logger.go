package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeClassify  EventType = "classify"
	EventTypeGenerate  EventType = "generate"
	EventTypeFallback  EventType = "fallback"
	EventTypeDecompose EventType = "decompose"
	EventTypeComplete  EventType = "complete"
	EventTypeHeartbeat EventType = "heartbeat"
	EventTypeLLM       EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	TaskID    string    `json:"task_id,omitempty"`
	StepID    string    `json:"step_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogClassify(taskID, scope string, explicitMinutes int) {
	l.Log(Event{
		Type:   EventTypeClassify,
		TaskID: taskID,
		Data: map[string]any{
			"scope":            scope,
			"explicit_minutes": explicitMinutes,
		},
	})
}

func (l *Logger) LogGenerate(taskID, stepID, source string, count int) {
	l.Log(Event{
		Type:   EventTypeGenerate,
		TaskID: taskID,
		StepID: stepID,
		Data: map[string]any{
			"source": source,
			"count":  count,
		},
	})
}

func (l *Logger) LogFallback(taskID, reason string) {
	l.Log(Event{
		Type:   EventTypeFallback,
		TaskID: taskID,
		Data:   map[string]string{"reason": reason},
	})
}

func (l *Logger) LogDecompose(taskID, stepID string, children int) {
	l.Log(Event{
		Type:   EventTypeDecompose,
		TaskID: taskID,
		StepID: stepID,
		Data:   map[string]int{"children": children},
	})
}

func (l *Logger) LogComplete(taskID, stepID string, actualMinutes, xp int) {
	l.Log(Event{
		Type:   EventTypeComplete,
		TaskID: taskID,
		StepID: stepID,
		Data: map[string]int{
			"actual_minutes": actualMinutes,
			"xp_earned":      xp,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(taskID string, prompt any, response string, toolCalls any) {
	l.Log(Event{
		Type:   EventTypeLLM,
		TaskID: taskID,
		Data: map[string]any{
			"prompt":     prompt,
			"response":   response,
			"tool_calls": toolCalls,
		},
	})
}
