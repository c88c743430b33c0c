package models

import "encoding/json"

// Customer is the stored customer record. Photo is a reference to an object
// held by the image service, never the image bytes.
type Customer struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Photo string `json:"photo"`
}

// CustomerUpdate holds the fields supplied to a partial update. Nil means
// "leave unchanged".
type CustomerUpdate struct {
	Name  *string
	Phone *string
	Photo *string
}

func (u CustomerUpdate) Empty() bool {
	return u.Name == nil && u.Phone == nil && u.Photo == nil
}

// Fields returns the supplied fields keyed by their stored name.
func (u CustomerUpdate) Fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Phone != nil {
		fields["phone"] = *u.Phone
	}
	if u.Photo != nil {
		fields["photo"] = *u.Photo
	}
	return fields
}

// Principal is the identity returned by the identity service for a valid
// token. It is passed through untouched.
type Principal struct {
	raw json.RawMessage
}

func NewPrincipal(raw json.RawMessage) Principal {
	return Principal{raw: append(json.RawMessage(nil), raw...)}
}

// Raw returns a copy of the identity payload as received.
func (p Principal) Raw() json.RawMessage {
	return append(json.RawMessage(nil), p.raw...)
}

func (p Principal) IsZero() bool {
	return len(p.raw) == 0
}
