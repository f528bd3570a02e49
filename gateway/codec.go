// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"bytes"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Subprotocols a client may request. Without one, frames are JSON text.
const (
	ProtocolJSON    = "json"
	ProtocolMsgpack = "msgpack"
)

type codec interface {
	frameType() int
	encode(v any) ([]byte, error)
}

type jsonCodec struct{}

func (jsonCodec) frameType() int { return websocket.TextMessage }

func (jsonCodec) encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// msgpackCodec encodes with the json struct tags so both encodings share
// field names.
type msgpackCodec struct{}

func (msgpackCodec) frameType() int { return websocket.BinaryMessage }

func (msgpackCodec) encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func codecFor(subprotocol string) codec {
	if subprotocol == ProtocolMsgpack {
		return msgpackCodec{}
	}
	return jsonCodec{}
}
