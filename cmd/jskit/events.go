package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
)

type dispatcher interface {
	Dispatch(eventType string, fields map[string]any) bool
}

type acknowledger interface {
	HandleAck(txID uint32) bool
	HandleNack(txID uint32, reason string) bool
}

// pumpEvents reads one JSON object per line from r until EOF.
//
//	{"type":"ack","transactionId":3}
//	{"type":"nack","transactionId":4,"reason":"busy"}
//	{"type":"appmessage","payload":{"temperature":21}}
//	{"type":"webviewclosed","response":"..."}
//
// ack and nack resolve app message transactions; every other type is
// dispatched to the running app with the remaining fields.
func pumpEvents(r io.Reader, apps dispatcher, messages acknowledger, logger *slog.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var lineNo int
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := handleEvent(line, apps, messages, logger); err != nil {
			logger.Warn("ignoring event", "line", lineNo, "error", err)
		}
	}
	return scanner.Err()
}

func handleEvent(line []byte, apps dispatcher, messages acknowledger, logger *slog.Logger) error {
	var fields map[string]any
	if err := json.Unmarshal(line, &fields); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	eventType, _ := fields["type"].(string)
	if eventType == "" {
		return errors.New("missing event type")
	}
	delete(fields, "type")

	switch eventType {
	case "ack", "nack":
		id, ok := fields["transactionId"].(float64)
		if !ok || id < 0 || id > math.MaxUint32 || id != math.Trunc(id) {
			return fmt.Errorf("%s: invalid transactionId %v", eventType, fields["transactionId"])
		}
		var found bool
		if eventType == "ack" {
			found = messages.HandleAck(uint32(id))
		} else {
			reason, _ := fields["reason"].(string)
			found = messages.HandleNack(uint32(id), reason)
		}
		if !found {
			logger.Debug("no outstanding transaction", "type", eventType, "transactionId", uint32(id))
		}
		return nil
	}

	if !apps.Dispatch(eventType, fields) {
		logger.Debug("event not delivered", "type", eventType)
	}
	return nil
}
