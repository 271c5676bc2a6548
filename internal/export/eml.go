// Package export renders extracted records as RFC 5322 .eml documents.
package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/DonatFortini/mailmate/internal/model"
)

// EML renders the record as a multipart .eml message: the normalized body as
// an inline text part, every ready attachment as a binary attachment part.
// Pending or errored attachments are skipped rather than exported empty.
func EML(record *model.EmailRecord) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(record.Subject)
	h.SetMessageID(fmt.Sprintf("%s@mailmate", uuid.New().String()))
	h.SetAddressList("From", []*mail.Address{parseAddress(record.Sender)})

	if len(record.Recipients) > 0 {
		to := make([]*mail.Address, 0, len(record.Recipients))
		for _, r := range record.Recipients {
			to = append(to, parseAddress(r))
		}
		h.SetAddressList("To", to)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	if err := writeBody(mw, record.Body); err != nil {
		return nil, err
	}
	for _, att := range record.Attachments {
		if att.Status != model.StatusReady {
			continue
		}
		if err := writeAttachment(mw, att); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing message: %w", err)
	}
	return buf.Bytes(), nil
}

func writeBody(mw *mail.Writer, body string) error {
	tw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("creating inline part: %w", err)
	}
	defer tw.Close()

	var th mail.InlineHeader
	th.Set("Content-Type", "text/plain; charset=utf-8")

	w, err := tw.CreatePart(th)
	if err != nil {
		return fmt.Errorf("creating body part: %w", err)
	}
	defer w.Close()

	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("writing body: %w", err)
	}
	return nil
}

func writeAttachment(mw *mail.Writer, att *model.Attachment) error {
	payload, err := base64.StdEncoding.DecodeString(att.Content)
	if err != nil {
		return fmt.Errorf("decoding attachment %s: %w", att.ID, err)
	}

	var ah mail.AttachmentHeader
	ah.SetFilename(att.Name)
	if att.Metadata.MimeType != "" {
		ah.Set("Content-Type", att.Metadata.MimeType)
	} else {
		ah.Set("Content-Type", "application/octet-stream")
	}

	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("creating attachment part %s: %w", att.ID, err)
	}
	defer w.Close()

	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing attachment %s: %w", att.ID, err)
	}
	return nil
}

// parseAddress splits a "Name <address>" display string into its parts. Bare
// addresses and bare names both degrade sensibly.
func parseAddress(display string) *mail.Address {
	display = strings.TrimSpace(display)

	if i := strings.IndexByte(display, '<'); i >= 0 {
		if j := strings.IndexByte(display, '>'); j > i {
			return &mail.Address{
				Name:    strings.TrimSpace(display[:i]),
				Address: strings.TrimSpace(display[i+1 : j]),
			}
		}
	}
	if strings.Contains(display, "@") {
		return &mail.Address{Address: display}
	}
	return &mail.Address{Name: display}
}
