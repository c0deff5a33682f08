package qr

import (
	"encoding/base64"
	"time"
)

const ContentType = "image/png"

// Artifact is a rendered QR image. It is never mutated after Encode returns.
type Artifact struct {
	PNG       []byte
	Width     int
	Payload   string
	CreatedAt time.Time
}

// DataURI returns the image as a data: URI usable in an <img> src attribute.
func (a *Artifact) DataURI() string {
	return "data:" + ContentType + ";base64," + base64.StdEncoding.EncodeToString(a.PNG)
}
