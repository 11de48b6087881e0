package router

import (
	"regexp"
	"strings"
)

var mentionTokenRe = regexp.MustCompile(`<@U[A-Z0-9]+>`)

// validateSlack implements §4.2.2's detailed validation steps 1-7.
func validateSlack(event, cfg map[string]any) bool {
	eventType := stringField(event, "type")

	eventTypes, ok := cfg["event_types"].([]any)
	if !ok || len(eventTypes) == 0 {
		eventTypes = []any{"message", "app_mention"}
	}
	if !stringInList(eventTypes, eventType) {
		return false
	}

	if channel, ok := cfg["channel_filter"].(string); ok && channel != "" {
		actual := stringField(event, "channel")
		if strings.HasPrefix(channel, "C") && !strings.ContainsAny(channel, "*^$.[]()+?{}|\\") {
			if channel != actual {
				return false
			}
		} else {
			re, err := regexp.Compile(channel)
			if err != nil || !re.MatchString(actual) {
				return false
			}
		}
	}

	if userPattern, ok := cfg["user_filter"].(string); ok && userPattern != "" {
		if !matchWildcard(userPattern, stringField(event, "user")) {
			return false
		}
	}

	ignoreBots := true
	if v, ok := cfg["ignore_bots"].(bool); ok {
		ignoreBots = v
	}
	if ignoreBots && stringField(event, "bot_id") != "" {
		return false
	}

	if mentionRequired, ok := cfg["mention_required"].(bool); ok && mentionRequired {
		if !mentionPresent(event, eventType) {
			return false
		}
	}

	if requireThread, ok := cfg["require_thread"].(bool); ok && requireThread {
		if stringField(event, "thread_ts") == "" {
			return false
		}
	}

	if eventType == "message" {
		if prefix, ok := cfg["command_prefix"].(string); ok && prefix != "" {
			if !strings.HasPrefix(strings.TrimSpace(stringField(event, "text")), prefix) {
				return false
			}
		}
	}

	return true
}

func mentionPresent(event map[string]any, eventType string) bool {
	if eventType == "app_mention" {
		return true
	}
	if mentionTokenRe.MatchString(stringField(event, "text")) {
		return true
	}
	blocks, ok := event["blocks"].([]any)
	if !ok {
		return false
	}
	for _, b := range blocks {
		block, ok := b.(map[string]any)
		if !ok {
			continue
		}
		elements, ok := block["elements"].([]any)
		if !ok {
			continue
		}
		if richTextHasUserElement(elements) {
			return true
		}
	}
	return false
}

func richTextHasUserElement(elements []any) bool {
	for _, e := range elements {
		el, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := el["user"]; ok {
			return true
		}
		if sub, ok := el["elements"].([]any); ok && richTextHasUserElement(sub) {
			return true
		}
	}
	return false
}

func stringInList(list []any, s string) bool {
	for _, v := range list {
		if str, ok := v.(string); ok && str == s {
			return true
		}
	}
	return false
}
