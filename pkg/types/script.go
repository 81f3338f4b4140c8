package types

import (
	"encoding/hex"
	"encoding/json"
)

// ScriptType identifies the type of locking script.
type ScriptType uint8

const (
	ScriptTypeP2PKH ScriptType = 0x01 // Pay to public key hash
	ScriptTypeP2SH  ScriptType = 0x02 // Pay to (multisig redeem) script hash
)

// String returns a human-readable name for the script type.
func (st ScriptType) String() string {
	switch st {
	case ScriptTypeP2PKH:
		return "P2PKH"
	case ScriptTypeP2SH:
		return "P2SH"
	default:
		return "Unknown"
	}
}

// Script defines the locking condition for a coin.
type Script struct {
	Type ScriptType `json:"type"`
	Data []byte     `json:"data"`
}

// PayToPubKeyHash returns a P2PKH script locking to addr.
func PayToPubKeyHash(addr Address) Script {
	return Script{Type: ScriptTypeP2PKH, Data: addr.Bytes()}
}

// PayToScriptHash returns a P2SH script locking to the script address addr.
func PayToScriptHash(addr Address) Script {
	return Script{Type: ScriptTypeP2SH, Data: addr.Bytes()}
}

// Address returns the address embedded in the script, if any.
func (s Script) Address() (Address, bool) {
	switch s.Type {
	case ScriptTypeP2PKH, ScriptTypeP2SH:
		if len(s.Data) == AddressSize {
			var addr Address
			copy(addr[:], s.Data)
			return addr, true
		}
	}
	return Address{}, false
}

// scriptJSON is the JSON representation of a Script with hex-encoded data.
type scriptJSON struct {
	Type ScriptType `json:"type"`
	Data string     `json:"data"`
}

// MarshalJSON encodes the script with hex-encoded data.
func (s Script) MarshalJSON() ([]byte, error) {
	return json.Marshal(scriptJSON{
		Type: s.Type,
		Data: hex.EncodeToString(s.Data),
	})
}

// UnmarshalJSON decodes a script with hex-encoded data.
func (s *Script) UnmarshalJSON(data []byte) error {
	var j scriptJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	s.Type = j.Type
	if j.Data != "" {
		b, err := hex.DecodeString(j.Data)
		if err != nil {
			return err
		}
		s.Data = b
	}
	return nil
}
