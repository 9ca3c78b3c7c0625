package condastore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const lastUpdateLayout = "2006-01-02T15:04:05.999999"

// ServerStatus mirrors the payload returned by the API root.
type ServerStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OK reports whether the server answered with a healthy status.
func (s ServerStatus) OK() bool {
	return strings.EqualFold(strings.TrimSpace(s.Status), "ok")
}

// Namespace groups environments on the server.
type Namespace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Environment describes one namespace/environment pair.
type Environment struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	BuildID   int64     `json:"build_id"`
	Namespace Namespace `json:"namespace"`
}

// Key returns the "namespace/name" identifier used in prefs and logs.
func (e Environment) Key() string {
	return e.Namespace.Name + "/" + e.Name
}

// Package is one concrete name+version pairing as returned by the catalog.
type Package struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	ChannelID int64  `json:"channel_id"`
	License   string `json:"license"`
	SHA256    string `json:"sha256"`
	Build     string `json:"build"`
	Summary   string `json:"summary"`
	Home      string `json:"home"`
}

// Channel is a remote repository packages are downloaded from.
type Channel struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	LastUpdate string `json:"last_update"`
}

// ParsedLastUpdate returns LastUpdate as time.Time when possible.
func (c Channel) ParsedLastUpdate() time.Time {
	return parseTime(c.LastUpdate)
}

// Page is the paginated envelope shared by every list endpoint.
type Page[T any] struct {
	Count  FlexInt `json:"count"`
	Data   []T     `json:"data"`
	Page   FlexInt `json:"page"`
	Size   FlexInt `json:"size"`
	Status string  `json:"status"`
}

// FlexInt accepts JSON numbers, numeric strings and null.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	var i int
	if err := json.Unmarshal(b, &i); err == nil {
		*n = FlexInt(i)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*n = 0
		return nil
	}
	parsed, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("FlexInt: cannot parse %q as int", s)
	}
	*n = FlexInt(parsed)
	return nil
}

type environmentDetail struct {
	Data struct {
		CurrentBuildID int64 `json:"current_build_id"`
	} `json:"data"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, lastUpdateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
