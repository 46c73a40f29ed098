package repositories

import (
	"fmt"
	"time"

	"traceforge/domain"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Records are stored in protobuf wire format so fields can be added later
// without rewriting existing values. Unknown fields are skipped on decode.
//
//	message Message { string id = 1; string author = 2; string body = 3; int64 created_at = 4; uint64 seq = 5; }
//	message User    { string username = 1; string password_hash = 2; int64 created_at = 3; }
const (
	messageIDField        protowire.Number = 1
	messageAuthorField    protowire.Number = 2
	messageBodyField      protowire.Number = 3
	messageCreatedAtField protowire.Number = 4
	messageSeqField       protowire.Number = 5

	userUsernameField  protowire.Number = 1
	userPasswordField  protowire.Number = 2
	userCreatedAtField protowire.Number = 3
)

func marshalMessage(m domain.Message) []byte {
	var b []byte
	b = appendString(b, messageIDField, m.ID.String())
	b = appendString(b, messageAuthorField, m.Author)
	b = appendString(b, messageBodyField, m.Body)
	b = appendVarint(b, messageCreatedAtField, uint64(m.CreatedAt.UnixNano()))
	b = appendVarint(b, messageSeqField, m.Seq)
	return b
}

func unmarshalMessage(b []byte) (domain.Message, error) {
	var (
		m  domain.Message
		id string
	)
	err := consumeFields(b, func(num protowire.Number, str string, v uint64) {
		switch num {
		case messageIDField:
			id = str
		case messageAuthorField:
			m.Author = str
		case messageBodyField:
			m.Body = str
		case messageCreatedAtField:
			m.CreatedAt = time.Unix(0, int64(v)).UTC()
		case messageSeqField:
			m.Seq = v
		}
	})
	if err != nil {
		return domain.Message{}, err
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return domain.Message{}, fmt.Errorf("message id: %w", err)
	}
	m.ID = parsedID
	return m, nil
}

func marshalUser(u User) []byte {
	var b []byte
	b = appendString(b, userUsernameField, u.Username)
	b = appendString(b, userPasswordField, u.PasswordHash)
	b = appendVarint(b, userCreatedAtField, uint64(u.CreatedAt.Unix()))
	return b
}

func unmarshalUser(b []byte) (User, error) {
	var u User
	err := consumeFields(b, func(num protowire.Number, str string, v uint64) {
		switch num {
		case userUsernameField:
			u.Username = str
		case userPasswordField:
			u.PasswordHash = str
		case userCreatedAtField:
			u.CreatedAt = time.Unix(int64(v), 0).UTC()
		}
	})
	return u, err
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// consumeFields walks every field of b, handing string and varint values to visit.
func consumeFields(b []byte, visit func(num protowire.Number, str string, v uint64)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			visit(num, s, 0)
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			visit(num, "", v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}
