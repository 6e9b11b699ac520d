package shared

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// WarningType represents different types of warnings
type WarningType int

const (
	LyricsNotFoundWarning WarningType = iota
	CoverArtDownloadWarning
	GenreLookupWarning
	UnmatchedTrackWarning
	TrackSkippedWarning
	CollectionTrackWarning
	PlaylistSyncWarning
)

// Warning represents a single warning with context
type Warning struct {
	Type    WarningType
	Message string
	Context string // track or collection the warning is about
	Details string
}

// WarningCollector collects non-fatal issues during a run and prints them
// once at the end.
type WarningCollector struct {
	mu       sync.Mutex
	warnings []Warning
	enabled  bool
}

// NewWarningCollector creates a new warning collector
func NewWarningCollector(enabled bool) *WarningCollector {
	return &WarningCollector{
		warnings: make([]Warning, 0),
		enabled:  enabled,
	}
}

// AddWarning adds a warning to the collector
func (wc *WarningCollector) AddWarning(warningType WarningType, context, message, details string) {
	if wc == nil || !wc.enabled {
		return
	}

	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.warnings = append(wc.warnings, Warning{
		Type:    warningType,
		Message: message,
		Context: context,
		Details: details,
	})
}

func (wc *WarningCollector) AddLyricsNotFoundWarning(artist, title string) {
	wc.AddWarning(LyricsNotFoundWarning, fmt.Sprintf("%s - %s", artist, title), "No usable lyrics", "")
}

func (wc *WarningCollector) AddCoverArtDownloadWarning(context, details string) {
	wc.AddWarning(CoverArtDownloadWarning, context, "Could not download cover art", details)
}

func (wc *WarningCollector) AddGenreLookupWarning(artist, title, details string) {
	wc.AddWarning(GenreLookupWarning, fmt.Sprintf("%s - %s", artist, title), "Genre lookup failed", details)
}

func (wc *WarningCollector) AddUnmatchedTrackWarning(searchTitle string) {
	wc.AddWarning(UnmatchedTrackWarning, searchTitle, "No catalog match, downloaded without metadata", "")
}

func (wc *WarningCollector) AddTrackSkippedWarning(entry string) {
	wc.AddWarning(TrackSkippedWarning, entry, "Already in download history", "")
}

func (wc *WarningCollector) AddCollectionTrackWarning(collection, trackID, details string) {
	wc.AddWarning(CollectionTrackWarning, fmt.Sprintf("%s (track %s)", collection, trackID), "Track could not be resolved", details)
}

func (wc *WarningCollector) AddPlaylistSyncWarning(playlist, details string) {
	wc.AddWarning(PlaylistSyncWarning, playlist, "Playlist mirroring failed", details)
}

// HasWarnings returns true if there are any warnings
func (wc *WarningCollector) HasWarnings() bool {
	return wc.GetWarningCount() > 0
}

// GetWarningCount returns the total number of warnings
func (wc *WarningCollector) GetWarningCount() int {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return len(wc.warnings)
}

// GetWarningsByType returns warnings grouped by type
func (wc *WarningCollector) GetWarningsByType() map[WarningType][]Warning {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	grouped := make(map[WarningType][]Warning)
	for _, warning := range wc.warnings {
		grouped[warning.Type] = append(grouped[warning.Type], warning)
	}
	return grouped
}

// PrintSummary prints a formatted summary of all warnings
func (wc *WarningCollector) PrintSummary() {
	if !wc.HasWarnings() {
		return
	}

	ColorWarning.Printf("\n⚠️  Warning Summary (%d warning%s):\n", wc.GetWarningCount(), Plural(wc.GetWarningCount()))
	ColorWarning.Println(strings.Repeat("─", 50))

	grouped := wc.GetWarningsByType()

	var types []WarningType
	for warningType := range grouped {
		types = append(types, warningType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, warningType := range types {
		wc.printWarningTypeSection(warningType, grouped[warningType])
	}
}

// printWarningTypeSection prints warnings for a specific type
func (wc *WarningCollector) printWarningTypeSection(warningType WarningType, warnings []Warning) {
	if len(warnings) == 0 {
		return
	}

	ColorWarning.Printf("\n%s (%d):\n", warningTypeTitle(warningType), len(warnings))

	contextCounts := make(map[string]int)
	for _, warning := range warnings {
		contextCounts[warning.Context]++
	}

	var contexts []string
	for context := range contextCounts {
		contexts = append(contexts, context)
	}
	sort.Strings(contexts)

	for _, context := range contexts {
		if count := contextCounts[context]; count > 1 {
			ColorWarning.Printf("  • %s (×%d)\n", context, count)
		} else {
			ColorWarning.Printf("  • %s\n", context)
		}
	}
}

func warningTypeTitle(warningType WarningType) string {
	switch warningType {
	case LyricsNotFoundWarning:
		return "Lyrics Not Found"
	case CoverArtDownloadWarning:
		return "Cover Art Download Failures"
	case GenreLookupWarning:
		return "Genre Lookup Failures"
	case UnmatchedTrackWarning:
		return "Downloaded Without Metadata"
	case TrackSkippedWarning:
		return "Skipped (Already Downloaded)"
	case CollectionTrackWarning:
		return "Unresolved Collection Tracks"
	case PlaylistSyncWarning:
		return "Playlist Mirroring Failures"
	default:
		return "Other Warnings"
	}
}
