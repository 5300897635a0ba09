// Package cursor encodes pagination positions as opaque tokens. A
// cursor is the base64 form of the hex ObjectID of the last edge the
// caller has seen; paging resumes at ids strictly older than it.
package cursor

import (
	"encoding/base64"

	"confessly/internal/apperrors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Encode returns the opaque cursor for a sort key.
func Encode(id primitive.ObjectID) string {
	return base64.StdEncoding.EncodeToString([]byte(id.Hex()))
}

// Decode parses an opaque cursor back into its sort key. Any token not
// produced by Encode fails with a MalformedCursor error.
func Decode(token string) (primitive.ObjectID, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return primitive.NilObjectID, apperrors.MalformedCursor("invalid cursor encoding")
	}

	id, err := primitive.ObjectIDFromHex(string(raw))
	if err != nil {
		return primitive.NilObjectID, apperrors.MalformedCursor("invalid cursor value")
	}

	return id, nil
}
