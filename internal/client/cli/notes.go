package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Evermishka/notes-app/internal/client/models"
	"github.com/Evermishka/notes-app/internal/common"
)

// getMultiline is an indirection over GetMultiline, swappable in tests.
var getMultiline = GetMultiline

// Add prompts for a title and body and saves the note locally; syncing
// happens in the background.
func (a *App) Add(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Enter title", os.Stdout)
	if err != nil {
		return err
	}

	content, err := getMultiline(a.reader, "Enter note text", os.Stdout)
	if err != nil {
		return err
	}

	view, err := a.noteService.Create(ctx, title, content)
	if err != nil {
		printlnFn("Failed to save note:", err.Error())
		return err
	}

	printlnFn(fmt.Sprintf("Saved %s [%s]", view.ID, view.Status))
	return nil
}

func (a *App) List(ctx context.Context) error {
	views, err := a.noteService.GetAll(ctx)
	if err != nil {
		printlnFn("Failed to list notes:", err.Error())
		return err
	}

	if len(views) == 0 {
		printlnFn("No notes yet.")
		return nil
	}
	for _, v := range views {
		printlnFn(formatNoteLine(&v))
	}
	return nil
}

func (a *App) Show(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter note id", os.Stdout)
	if err != nil {
		return err
	}

	view, err := a.noteService.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			printlnFn("Note not found:", id)
			return nil
		}
		printlnFn("Failed to load note:", err.Error())
		return err
	}

	printlnFn(formatNoteLine(view))
	printlnFn(view.Content)
	if view.SyncError != "" {
		printlnFn("Last sync error:", view.SyncError)
	}
	return nil
}

// Edit prompts for a note id and new field values. Pressing Enter on a
// prompt keeps the current value.
func (a *App) Edit(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter note id", os.Stdout)
	if err != nil {
		return err
	}

	title, err := getSimpleText(a.reader, "New title (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}
	content, err := getMultiline(a.reader, "New text (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}

	var titlePtr, contentPtr *string
	if title != "" {
		titlePtr = &title
	}
	if content != "" {
		contentPtr = &content
	}

	view, err := a.noteService.Update(ctx, id, titlePtr, contentPtr)
	if err != nil {
		printlnFn("Failed to update note:", err.Error())
		return err
	}
	if view == nil {
		printlnFn("Note not found:", id)
		return nil
	}

	printlnFn(fmt.Sprintf("Updated %s [%s]", view.ID, view.Status))
	return nil
}

func (a *App) Delete(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter note id to delete", os.Stdout)
	if err != nil {
		return err
	}

	removed, err := a.noteService.Delete(ctx, id)
	if err != nil {
		printlnFn("Failed to delete note:", err.Error())
		return err
	}
	if !removed {
		printlnFn("Note not found:", id)
		return nil
	}

	printlnFn("Deleted", id)
	return nil
}

func formatNoteLine(v *models.NoteView) string {
	return fmt.Sprintf("%s  %-30s  %s  [%s]", v.ID, v.Title, v.UpdatedAt.Local().Format("2006-01-02 15:04"), v.Status)
}
