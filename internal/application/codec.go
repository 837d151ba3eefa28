package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
)

type documentSchema struct {
	Accounts           []accountSchema            `json:"accounts"`
	ActiveAccountIndex *int                       `json:"active_account_index,omitempty"`
	CurrentServerID    string                     `json:"current_server_id"`
	LastSyncTime       syncTime                   `json:"last_sync_time,omitzero"`
	Extra              map[string]json.RawMessage `json:"-"`
}

var documentKeys = []string{"accounts", "active_account_index", "current_server_id", "last_sync_time"}

func (s documentSchema) MarshalJSON() ([]byte, error) {
	type plain documentSchema
	return marshalWithExtra(plain(s), s.Extra)
}

func (s *documentSchema) UnmarshalJSON(data []byte) error {
	type plain documentSchema
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	extra, err := unknownFields(data, documentKeys)
	if err != nil {
		return err
	}

	*s = documentSchema(known)
	s.Extra = extra
	return nil
}

type accountSchema struct {
	Email    string                     `json:"email"`
	Cookies  map[string]string          `json:"cookies"`
	ServerID string                     `json:"server_id,omitempty"`
	Extra    map[string]json.RawMessage `json:"-"`
}

var accountKeys = []string{"email", "cookies", "server_id"}

func (s accountSchema) MarshalJSON() ([]byte, error) {
	type plain accountSchema
	return marshalWithExtra(plain(s), s.Extra)
}

func (s *accountSchema) UnmarshalJSON(data []byte) error {
	type plain accountSchema
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	extra, err := unknownFields(data, accountKeys)
	if err != nil {
		return err
	}

	*s = accountSchema(known)
	s.Extra = extra
	return nil
}

// unknownFields returns the members of a JSON object that no schema field
// claims. Matching is case-insensitive like encoding/json field matching.
func unknownFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}

	for key := range all {
		for _, name := range known {
			if strings.EqualFold(key, name) {
				delete(all, key)
				break
			}
		}
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// marshalWithExtra encodes v, an object, and appends the extra members after
// the known ones in key order.
func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, key := range keys {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[key])
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// syncTime accepts RFC 3339 strings and epoch milliseconds, and always
// writes RFC 3339 in UTC.
type syncTime struct {
	time.Time
}

func (t syncTime) IsZero() bool {
	return t.Time.IsZero()
}

func (t syncTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

func (t *syncTime) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		if strings.TrimSpace(raw) == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("parse last_sync_time: %w", err)
		}
		t.Time = parsed.UTC()
		return nil
	}

	millis, err := strconv.ParseInt(string(trimmed), 10, 64)
	if err != nil {
		return fmt.Errorf("parse last_sync_time: %w", err)
	}
	t.Time = time.UnixMilli(millis).UTC()
	return nil
}

func decodeDocument(content string) (domain.Document, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Document{}, fmt.Errorf("%w: content is empty", domain.ErrMalformedDocument)
	}

	var schema documentSchema
	if err := json.Unmarshal([]byte(content), &schema); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %w", domain.ErrMalformedDocument, err)
	}
	if schema.Accounts == nil {
		return domain.Document{}, fmt.Errorf("%w: accounts is missing", domain.ErrMalformedDocument)
	}

	doc := domain.Document{
		Accounts:           make([]domain.Account, 0, len(schema.Accounts)),
		ActiveAccountIndex: schema.ActiveAccountIndex,
		CurrentServerID:    schema.CurrentServerID,
		LastSyncTime:       schema.LastSyncTime.Time,
		Extra:              schema.Extra,
	}
	for _, account := range schema.Accounts {
		cookies := account.Cookies
		if cookies == nil {
			cookies = map[string]string{}
		}
		doc.Accounts = append(doc.Accounts, domain.Account{
			Email:    account.Email,
			Cookies:  cookies,
			ServerID: account.ServerID,
			Extra:    account.Extra,
		})
	}

	if err := doc.Validate(); err != nil {
		return domain.Document{}, err
	}

	return doc, nil
}

func encodeDocument(doc domain.Document) (string, error) {
	schema := documentSchema{
		Accounts:           make([]accountSchema, 0, len(doc.Accounts)),
		ActiveAccountIndex: doc.ActiveAccountIndex,
		CurrentServerID:    doc.CurrentServerID,
		LastSyncTime:       syncTime{Time: doc.LastSyncTime},
		Extra:              doc.Extra,
	}
	for _, account := range doc.Accounts {
		cookies := account.Cookies
		if cookies == nil {
			cookies = map[string]string{}
		}
		schema.Accounts = append(schema.Accounts, accountSchema{
			Email:    account.Email,
			Cookies:  cookies,
			ServerID: account.ServerID,
			Extra:    account.Extra,
		})
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	return string(data), nil
}

// firstEntry picks the blob the keeper operates on: the lexicographically
// smallest name, so the choice is stable across loads.
func firstEntry(files map[string]string) (string, string, bool) {
	if len(files) == 0 {
		return "", "", false
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	return names[0], files[names[0]], true
}
