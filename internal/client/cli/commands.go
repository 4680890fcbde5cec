package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/akozadaev/inkpad/internal/client/models"
	"github.com/akozadaev/inkpad/internal/common"
)

// notePayload is the JSON shape the CLI stores in a note's payload. Other
// clients may carry richer payloads; everything unknown survives untouched
// in the note's aux fields.
type notePayload struct {
	Text string `json:"text"`
}

func (a *App) List(ctx context.Context) error {
	items, err := a.notes.List(ctx)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	if len(items) == 0 {
		printlnFn("No notes yet. Type 'add' to create one.")
		return nil
	}
	for _, n := range items {
		updated := time.UnixMilli(n.EffectiveUpdatedAt()).Format(time.RFC3339)
		printlnFn(fmt.Sprintf("%s  %s  %s", n.ID, updated, summary(n)))
	}
	return nil
}

func (a *App) Show(ctx context.Context, id string) error {
	n, err := a.notes.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			printlnFn("No note with id", id)
		} else {
			printlnFn("Error:", err.Error())
		}
		return err
	}

	printlnFn("id:      ", n.ID)
	printlnFn("created: ", time.UnixMilli(n.CreatedAt).Format(time.RFC3339))
	printlnFn("updated: ", time.UnixMilli(n.EffectiveUpdatedAt()).Format(time.RFC3339))
	printlnFn(noteText(n))
	return nil
}

func (a *App) Add(ctx context.Context) error {
	text, err := GetMultiline(a.reader, "Enter note text", os.Stdout)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	n, err := a.notes.Create(ctx)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	n.Payload, err = json.Marshal(notePayload{Text: text})
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	if _, err := a.notes.Update(ctx, n); err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	printlnFn("Created", n.ID)
	return nil
}

func (a *App) Edit(ctx context.Context, id string) error {
	n, err := a.notes.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			printlnFn("No note with id", id)
		} else {
			printlnFn("Error:", err.Error())
		}
		return err
	}

	printlnFn("Current text:")
	printlnFn(noteText(n))

	text, err := GetMultiline(a.reader, "Enter new text", os.Stdout)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	n.Payload, err = json.Marshal(notePayload{Text: text})
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	if _, err := a.notes.Update(ctx, n); err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	printlnFn("Updated", n.ID)
	return nil
}

func (a *App) Del(ctx context.Context, id string) error {
	answer, err := GetSimpleText(a.reader, fmt.Sprintf("Delete note %s? (y/N)", id), os.Stdout)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	if ans := strings.ToLower(answer); ans != "y" && ans != "yes" {
		printlnFn("Cancelled.")
		return nil
	}

	previous, err := a.notes.Delete(ctx, id)
	if err != nil {
		printlnFn("Error:", err.Error())
		if previous != nil {
			printlnFn("The note was kept locally.")
		}
		return err
	}
	printlnFn("Deleted", id)
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	if err := a.engine.SyncNow(ctx, a.config.OwnerID); err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	depth, err := a.notes.PendingCount(ctx)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	if depth > 0 {
		printlnFn(fmt.Sprintf("Sync finished, %d operation(s) still pending.", depth))
	} else {
		printlnFn("Sync finished.")
	}
	return nil
}

func (a *App) Status(ctx context.Context) error {
	mode := "offline"
	if a.monitor.Online() {
		mode = "online"
	}
	printlnFn("connectivity:", mode)

	depth, err := a.notes.PendingCount(ctx)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	printlnFn("pending ops: ", depth)

	last, err := a.engine.LastSync(ctx, a.config.OwnerID)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}
	if last.IsZero() {
		printlnFn("last sync:    never")
	} else {
		printlnFn("last sync:   ", last.Format(time.RFC3339))
	}
	return nil
}

// summary is the one-line form of a note used by list output.
func summary(n *models.Note) string {
	text := noteText(n)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	// truncate on rune boundaries so multi-byte text is not mangled
	if r := []rune(text); len(r) > 60 {
		text = string(r[:57]) + "..."
	}
	if text == "" {
		return "(empty)"
	}
	return text
}

// noteText extracts the text field of the payload. A payload this client did
// not produce is shown raw rather than hidden.
func noteText(n *models.Note) string {
	var p notePayload
	if err := json.Unmarshal(n.Payload, &p); err != nil {
		return string(n.Payload)
	}
	return p.Text
}
