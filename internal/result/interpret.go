// Package result interprets a lookup response body into per-check panel
// states, an overall status and alert text.
//
// Interpretation trusts nothing the service says about the overall outcome;
// it derives everything from the individual checks.
package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmater/pulse/internal/proto"
)

// Generic transport failure messages. No per-check detail is shown with them.
const (
	MsgEmptyResponse     = "Server returned an empty response."
	MsgNonJSONResponse   = "Server returned a non-JSON response."
	MsgMalformedResponse = "Server returned a malformed response."
	MsgNetworkError      = "Network error: request failed."
)

// Interpret derives the dashboard state from a raw response body. It is a
// pure function of body.
func Interpret(body []byte) Interpretation {
	if len(bytes.TrimSpace(body)) == 0 {
		return failure("", MsgEmptyResponse)
	}
	if !json.Valid(body) {
		return failure("", MsgNonJSONResponse)
	}
	obj, ok := decodeObject(body)
	if !ok {
		return failure("", MsgMalformedResponse)
	}

	query, _ := obj.getString("query")
	if msg, ok := obj.getString("error"); ok && strings.TrimSpace(msg) != "" {
		return failure(query, msg)
	}

	in := Interpretation{Query: query, Panels: make([]Panel, 0, len(proto.Kinds))}
	attempted, failed := false, false
	for _, kind := range proto.Kinds {
		raw, _ := obj.get(string(kind))
		r := classify(raw)
		in.Panels = append(in.Panels, Panel{Kind: kind, Result: r})

		switch r := r.(type) {
		case Succeeded:
			attempted = true
		case Failed:
			attempted, failed = true, true
			in.Errors = append(in.Errors, checkMessage(kind, r.Err))
		}
	}

	switch {
	case !attempted:
		in.Overall = Neutral
	case failed:
		in.Overall = Fail
	default:
		in.Overall = OK
	}
	return in
}

// TransportError is the interpretation of a request that produced no
// response at all. The cause is for logs only and is not shown.
func TransportError(error) Interpretation {
	return failure("", MsgNetworkError)
}

// failure is a request-level failure: one message, every panel neutral.
func failure(query, msg string) Interpretation {
	in := Interpretation{
		Query:   query,
		Overall: Fail,
		Panels:  make([]Panel, 0, len(proto.Kinds)),
		Errors:  []string{msg},
	}
	for _, kind := range proto.Kinds {
		in.Panels = append(in.Panels, Panel{Kind: kind, Result: NotAttempted{}})
	}
	return in
}

// classify maps one check object from the wire onto the tagged variant.
// Anything other than an object with "attempted": true is NotAttempted. An
// "error" member fails the check even when "ok" is true.
func classify(raw json.RawMessage) CheckResult {
	if raw == nil {
		return NotAttempted{}
	}
	obj, ok := decodeObject(raw)
	if !ok || !obj.isTrue("attempted") {
		return NotAttempted{}
	}

	errRaw, hasErr := obj.get("error")
	fields := renderFields(obj)
	if hasErr || !obj.isTrue("ok") {
		return Failed{Err: errInfo(errRaw), Fields: fields}
	}
	return Succeeded{Fields: fields}
}

// renderFields turns every member except the attempted/ok flags into a
// display field.
func renderFields(obj object) []Field {
	var fields []Field
	for _, m := range obj {
		if m.key == "attempted" || m.key == "ok" {
			continue
		}
		f := Field{Key: m.key}
		if info, ok := asErrInfo(m.value); ok {
			f.Text = formatErrInfo(info)
			f.IsError = true
		} else {
			f.Text = text(m.value)
			f.IsError = m.key == "error" && !isNull(m.value)
		}
		fields = append(fields, f)
	}
	return fields
}

// asErrInfo recognizes the error shape: an object with exactly the string
// members "type" and "message". Objects that merely contain those keys
// alongside others are ordinary data.
func asErrInfo(raw json.RawMessage) (proto.ErrInfo, bool) {
	obj, ok := decodeObject(raw)
	if !ok || len(obj) != 2 {
		return proto.ErrInfo{}, false
	}
	typ, ok := obj.getString("type")
	if !ok {
		return proto.ErrInfo{}, false
	}
	msg, ok := obj.getString("message")
	if !ok {
		return proto.ErrInfo{}, false
	}
	return proto.ErrInfo{Type: proto.ErrType(typ), Message: msg}, true
}

// errInfo reads a check's "error" member, whatever its shape.
func errInfo(raw json.RawMessage) proto.ErrInfo {
	info := proto.ErrInfo{Type: "Error"}
	if raw == nil {
		return info
	}
	obj, ok := decodeObject(raw)
	if !ok {
		// A bare value is taken as the message.
		info.Message = text(raw)
		return info
	}
	if v, ok := obj.get("type"); ok {
		if t := text(v); t != "" {
			info.Type = proto.ErrType(t)
		}
	}
	if v, ok := obj.get("message"); ok {
		info.Message = text(v)
	}
	return info
}

func formatErrInfo(info proto.ErrInfo) string {
	if info.Message == "" {
		return string(info.Type)
	}
	return fmt.Sprintf("%s - %s", info.Type, info.Message)
}

func checkMessage(kind proto.CheckKind, info proto.ErrInfo) string {
	return kind.Label() + ": " + formatErrInfo(info)
}
