package topology

import (
	"context"
	"fmt"
	"log/slog"
)

// ExtractProperties reads every entry of store in platform order. A failing key or value
// drops that entry and records a diagnostic. Display names and descriptions are optional:
// their failures leave the field empty and are never diagnostics.
func ExtractProperties(ctx context.Context, store PropertyStore) ([]PropertyEntry, []Diagnostic) {
	return extractProperties(ctx, store, WalkOptions{}.logger())
}

func extractProperties(ctx context.Context, store PropertyStore, logger *slog.Logger) ([]PropertyEntry, []Diagnostic) {
	count, err := store.Count()
	if err != nil {
		return nil, []Diagnostic{Diagnose(newError(ErrCodeReadFailure, "count properties", "properties", err))}
	}

	entries := make([]PropertyEntry, 0, count)
	var diags []Diagnostic
	for i := 0; i < count; i++ {
		location := fmt.Sprintf("properties[%d]", i)
		if ctxErr := ctx.Err(); ctxErr != nil {
			diags = append(diags, Diagnose(newError(ErrCodeCancelled, "read properties", location, ctxErr)))
			return entries, diags
		}

		key, err := store.KeyAt(i)
		if err != nil {
			diags = append(diags, Diagnose(newError(ErrCodeReadFailure, "read property key", location, err)))
			continue
		}
		value, err := store.ValueText(key)
		if err != nil {
			diags = append(diags, Diagnose(newError(ErrCodeReadFailure, "read property value", key.String(), err)))
			continue
		}

		entry := PropertyEntry{Key: key, Value: value}
		if name, nameErr := store.DisplayName(key); nameErr == nil {
			entry.DisplayName = name
		}
		desc, descErr := store.Description(key)
		if descErr != nil {
			logger.Info("No description for property", "key", key.String(), "error", descErr)
		} else {
			entry.Description = desc
		}
		entries = append(entries, entry)
	}
	return entries, diags
}
