package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/types"
)

// BulkUpdate applies each find/replace item independently through
// VersionedUpdate. A failed item never affects another; the result slice
// has one entry per item, in order.
func (e *Engine) BulkUpdate(ctx context.Context, items []types.BulkUpdateItem, author string) []types.ItemResult {
	start := time.Now()
	results := make([]types.ItemResult, 0, len(items))
	for _, item := range items {
		results = append(results, e.bulkItem(ctx, item, author))
	}
	failed := types.CountFailed(results)
	observe("bulk_update", start, nil)
	e.logger.Info("bulk update finished", "items", len(items), "failed", failed, "author", actorOrDefault(author))
	return results
}

// errBulkItem carries a fixed per-item message out of replaceOnce.
type errBulkItem string

func (e errBulkItem) Error() string { return string(e) }

func (e *Engine) bulkItem(ctx context.Context, item types.BulkUpdateItem, author string) types.ItemResult {
	result := types.ItemResult{Name: item.Name}

	replace := func() (*types.UpdateResult, error) {
		return e.replaceOnce(ctx, item, author)
	}
	var res *types.UpdateResult
	var err error
	if e.bulkRetries > 0 {
		res, err = RetryOnConflict(ctx, e.bulkRetries, replace)
	} else {
		res, err = replace()
	}

	var msg errBulkItem
	switch {
	case errors.As(err, &msg):
		result.Error = string(msg)
		return result
	case err != nil:
		result.Error = itemError(err)
		return result
	}
	result.Success = true
	result.Version = res.Instruction.Version
	return result
}

// replaceOnce reads the live field and writes the replacement as one
// versioned update.
func (e *Engine) replaceOnce(ctx context.Context, item types.BulkUpdateItem, author string) (*types.UpdateResult, error) {
	inst, err := e.store.GetInstruction(ctx, item.Name)
	if err != nil {
		return nil, err
	}
	current, ok := inst.FieldValue(item.Field)
	if !ok {
		return nil, errBulkItem(types.ErrMsgInvalidField)
	}
	if item.OldValue == "" || !strings.Contains(current, item.OldValue) {
		return nil, errBulkItem(types.ErrMsgOldValue)
	}

	var fields types.FieldUpdates
	if err := fields.Set(item.Field, strings.ReplaceAll(current, item.OldValue, item.NewValue)); err != nil {
		return nil, errBulkItem(types.ErrMsgInvalidField)
	}
	summary := fmt.Sprintf(`Bulk update: replaced "%s" with "%s" in %s`, item.OldValue, item.NewValue, item.Field)

	return e.VersionedUpdate(ctx, UpdateRequest{
		Name:    item.Name,
		Fields:  fields,
		Summary: summary,
		Author:  author,
	})
}

// ExportAll returns full records for every active instruction, optionally
// limited to one category.
func (e *Engine) ExportAll(ctx context.Context, category string) (records []types.ExportRecord, err error) {
	defer func(start time.Time) { observe("export", start, err) }(time.Now())

	insts, err := e.store.ListInstructions(ctx, types.InstructionFilter{Category: category})
	if err != nil {
		return nil, err
	}
	records = make([]types.ExportRecord, 0, len(insts))
	for _, inst := range insts {
		total, major, err := e.store.CountVersions(ctx, inst.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count versions of %s: %w", inst.Name, err)
		}
		created, updated := inst.CreatedAt, inst.UpdatedAt
		records = append(records, types.ExportRecord{
			Name:             inst.Name,
			Title:            inst.Title,
			Content:          inst.Content,
			Category:         inst.Category,
			Version:          inst.Version,
			VersionTag:       inst.VersionTag,
			VersionCount:     inst.VersionCount,
			LastMajorVersion: inst.LastMajorVersion,
			ChangeSummary:    inst.ChangeSummary,
			LastChangedBy:    inst.LastChangedBy,
			ContentHash:      inst.ContentHash,
			ArchivedVersions: total,
			MajorVersions:    major,
			CreatedAt:        &created,
			UpdatedAt:        &updated,
		})
	}
	return records, nil
}

// ImportAll creates or overwrites instructions from records. Each record
// is handled independently and yields one result.
func (e *Engine) ImportAll(ctx context.Context, records []types.ExportRecord, author string, opts types.ImportOptions) []types.ItemResult {
	start := time.Now()
	results := make([]types.ItemResult, 0, len(records))
	for _, rec := range records {
		results = append(results, e.importItem(ctx, rec, author, opts))
	}
	observe("import", start, nil)
	e.logger.Info("import finished",
		"items", len(records),
		"failed", types.CountFailed(results),
		"overwrite", opts.Overwrite,
		"author", actorOrDefault(author))
	return results
}

func (e *Engine) importItem(ctx context.Context, rec types.ExportRecord, author string, opts types.ImportOptions) types.ItemResult {
	result := types.ItemResult{Name: rec.Name}

	existing, err := e.store.GetInstruction(ctx, rec.Name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		inst, err := e.Create(ctx, CreateRequest{
			Name:     rec.Name,
			Title:    rec.Title,
			Content:  rec.Content,
			Category: rec.Category,
			Tag:      rec.VersionTag,
			Summary:  importSummary(rec),
			Author:   author,
		})
		if err != nil {
			result.Error = itemError(err)
			return result
		}
		result.Success = true
		result.Created = true
		result.Version = inst.Version
		return result
	case err != nil:
		result.Error = itemError(err)
		return result
	}

	if !opts.Overwrite {
		result.Error = types.ErrMsgAlreadyExists
		return result
	}
	if opts.SkipUnchanged && existing.ContentHash == types.ContentHash(rec.Title, rec.Content, rec.Category) &&
		(rec.VersionTag == "" || rec.VersionTag == existing.VersionTag) {
		result.Success = true
		result.Skipped = true
		result.Version = existing.Version
		return result
	}

	fields := types.FieldUpdates{
		Title:    types.StringPtr(rec.Title),
		Content:  types.StringPtr(rec.Content),
		Category: types.StringPtr(rec.Category),
	}
	if rec.VersionTag != "" && rec.VersionTag != existing.VersionTag {
		tag := rec.VersionTag
		fields.VersionTag = &tag
	}
	res, err := e.VersionedUpdate(ctx, UpdateRequest{
		Name:    rec.Name,
		Fields:  fields,
		Summary: importSummary(rec),
		Author:  author,
	})
	if err != nil {
		result.Error = itemError(err)
		return result
	}
	result.Success = true
	result.Version = res.Instruction.Version
	return result
}

func importSummary(rec types.ExportRecord) string {
	if rec.ChangeSummary != "" {
		return rec.ChangeSummary
	}
	return "Imported"
}

// itemError renders an error for a batch result.
func itemError(err error) string {
	if errors.Is(err, storage.ErrNotFound) {
		return types.ErrMsgNotFound
	}
	if errors.Is(err, storage.ErrConflict) {
		return types.ErrMsgAlreadyExists
	}
	return err.Error()
}
