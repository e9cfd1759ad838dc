// internal/websocket/utils.go
package websocket

import "encoding/json"

// mapToStruct re-decodes the loosely typed data of a message into target.
func mapToStruct(data interface{}, target interface{}) error {
	if data == nil {
		return ErrInvalidRequest
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}

// DecodeData is mapToStruct for message handlers outside this package.
func DecodeData(msg interface{ GetData() interface{} }, target interface{}) error {
	return mapToStruct(msg.GetData(), target)
}
