package upstream

import "encoding/json"

// ImportedFile describes one source file as the converter classified it.
type ImportedFile struct {
	Stem             string   `json:"stem"`
	GeometryType     string   `json:"geometry_type"`
	FeatureCount     int      `json:"feature_count"`
	AttributeColumns []string `json:"attribute_columns"`
	DetectedType     string   `json:"detected_type,omitempty"`
	DetectedLevel    *int     `json:"detected_level,omitempty"`
	LevelName        string   `json:"level_name,omitempty"`
	ShortName        string   `json:"short_name,omitempty"`
	Outdoor          bool     `json:"outdoor"`
	LevelCategory    string   `json:"level_category,omitempty"`
	Confidence       string   `json:"confidence"`
	CRSDetected      string   `json:"crs_detected,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

type CleanupSummary struct {
	MultipolygonsExploded int `json:"multipolygons_exploded"`
	RingsClosed           int `json:"rings_closed"`
	FeaturesReoriented    int `json:"features_reoriented"`
	EmptyFeaturesDropped  int `json:"empty_features_dropped"`
	CoordinatesRounded    int `json:"coordinates_rounded"`
}

// ImportResult is the converter's response to a session-creating upload.
type ImportResult struct {
	SessionID      string         `json:"session_id"`
	Files          []ImportedFile `json:"files"`
	CleanupSummary CleanupSummary `json:"cleanup_summary"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// LearningSuggestion is a classification rule the converter inferred from a
// manual correction, offered for one-click acceptance.
type LearningSuggestion struct {
	SourceStem    string   `json:"source_stem"`
	Keyword       string   `json:"keyword"`
	FeatureType   string   `json:"feature_type"`
	AffectedStems []string `json:"affected_stems"`
}

// FilePatch carries the user's manual corrections for one file.
type FilePatch struct {
	DetectedType    *string `json:"detected_type,omitempty"`
	DetectedLevel   *int    `json:"detected_level,omitempty"`
	LevelName       *string `json:"level_name,omitempty"`
	ShortName       *string `json:"short_name,omitempty"`
	Outdoor         *bool   `json:"outdoor,omitempty"`
	LevelCategory   *string `json:"level_category,omitempty"`
	ApplyLearning   bool    `json:"apply_learning,omitempty"`
	LearningKeyword string  `json:"learning_keyword,omitempty"`
}

type FilePatchResult struct {
	File               ImportedFile        `json:"file"`
	Files              []ImportedFile      `json:"files"`
	LearningSuggestion *LearningSuggestion `json:"learning_suggestion,omitempty"`
}

// Address mirrors the converter's address input shape.
type Address struct {
	Address          string `json:"address,omitempty"`
	Unit             string `json:"unit,omitempty"`
	Locality         string `json:"locality,omitempty"`
	Province         string `json:"province,omitempty"`
	Country          string `json:"country,omitempty"`
	PostalCode       string `json:"postal_code,omitempty"`
	PostalCodeExt    string `json:"postal_code_ext,omitempty"`
	PostalCodeVanity string `json:"postal_code_vanity,omitempty"`
}

type Project struct {
	VenueName     string  `json:"venue_name"`
	VenueCategory string  `json:"venue_category"`
	Language      string  `json:"language,omitempty"`
	Address       Address `json:"address"`
}

type LevelItem struct {
	Stem         string `json:"stem"`
	DetectedType string `json:"detected_type,omitempty"`
	Ordinal      *int   `json:"ordinal,omitempty"`
	Name         string `json:"name,omitempty"`
	ShortName    string `json:"short_name,omitempty"`
	Outdoor      bool   `json:"outdoor"`
	Category     string `json:"category,omitempty"`
}

type Building struct {
	ID               string   `json:"id"`
	Name             string   `json:"name,omitempty"`
	Category         string   `json:"category,omitempty"`
	Restriction      string   `json:"restriction,omitempty"`
	AddressMode      string   `json:"address_mode,omitempty"`
	Address          *Address `json:"address,omitempty"`
	AddressFeatureID string   `json:"address_feature_id,omitempty"`
	FileStems        []string `json:"file_stems,omitempty"`
}

type UnitCodePreviewItem struct {
	Code       string `json:"code"`
	Category   string `json:"category"`
	Count      int    `json:"count"`
	Unresolved bool   `json:"unresolved"`
}

type UnitMapping struct {
	CodeColumn          string                `json:"code_column,omitempty"`
	NameColumn          string                `json:"name_column,omitempty"`
	AltNameColumn       string                `json:"alt_name_column,omitempty"`
	RestrictionColumn   string                `json:"restriction_column,omitempty"`
	AccessibilityColumn string                `json:"accessibility_column,omitempty"`
	AvailableCategories []string              `json:"available_categories,omitempty"`
	Preview             []UnitCodePreviewItem `json:"preview,omitempty"`
}

type OpeningMapping struct {
	CategoryColumn      string `json:"category_column,omitempty"`
	NameColumn          string `json:"name_column,omitempty"`
	AccessibilityColumn string `json:"accessibility_column,omitempty"`
	AccessControlColumn string `json:"access_control_column,omitempty"`
	DoorAutomaticColumn string `json:"door_automatic_column,omitempty"`
	DoorMaterialColumn  string `json:"door_material_column,omitempty"`
	DoorTypeColumn      string `json:"door_type_column,omitempty"`
}

type FixtureMapping struct {
	NameColumn     string `json:"name_column,omitempty"`
	AltNameColumn  string `json:"alt_name_column,omitempty"`
	CategoryColumn string `json:"category_column,omitempty"`
}

type Mappings struct {
	Unit            UnitMapping    `json:"unit"`
	Opening         OpeningMapping `json:"opening"`
	Fixture         FixtureMapping `json:"fixture"`
	DetailConfirmed bool           `json:"detail_confirmed"`
}

// WizardState is the converter's durable copy of the wizard configuration.
// The footprint slice is opaque to the workbench.
type WizardState struct {
	Project          *Project        `json:"project,omitempty"`
	Levels           []LevelItem     `json:"levels,omitempty"`
	Buildings        []Building      `json:"buildings,omitempty"`
	Mappings         Mappings        `json:"mappings"`
	Footprint        json.RawMessage `json:"footprint,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
	GenerationStatus string          `json:"generation_status,omitempty"`
}

type CompanyMappingsResult struct {
	DefaultCategory string                `json:"default_category"`
	MappingsCount   int                   `json:"mappings_count"`
	Preview         []UnitCodePreviewItem `json:"preview,omitempty"`
	UnresolvedCount int                   `json:"unresolved_count"`
}

// FeatureCollection is the raw review payload. Feature rows stay untyped
// until review.Normalize vets them.
type FeatureCollection struct {
	Type     string           `json:"type"`
	Features []map[string]any `json:"features"`
}

type GenerateResult struct {
	Status                string `json:"status"`
	GeneratedFeatureCount int    `json:"generated_feature_count"`
	Message               string `json:"message,omitempty"`
}

// BulkOp names a bulk feature mutation.
type BulkOp string

const (
	BulkPatch      BulkOp = "patch"
	BulkDelete     BulkOp = "delete"
	BulkMergeUnits BulkOp = "merge_units"
)

type BulkRequest struct {
	Op          BulkOp         `json:"op"`
	IDs         []string       `json:"ids"`
	Properties  map[string]any `json:"properties,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
}

type ValidationIssue struct {
	FeatureID        string          `json:"feature_id,omitempty"`
	RelatedFeatureID string          `json:"related_feature_id,omitempty"`
	Check            string          `json:"check"`
	Message          string          `json:"message"`
	Severity         string          `json:"severity"`
	AutoFixable      bool            `json:"auto_fixable"`
	FixDescription   string          `json:"fix_description,omitempty"`
	OverlapGeometry  json.RawMessage `json:"overlap_geometry,omitempty"`
}

type ValidationSummary struct {
	TotalFeatures    int `json:"total_features"`
	ErrorCount       int `json:"error_count"`
	WarningCount     int `json:"warning_count"`
	AutoFixableCount int `json:"auto_fixable_count"`
}

type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
	Summary  ValidationSummary `json:"summary"`
}

// IssuePartition groups validation issues for per-feature display. Issues
// that name no feature, such as venue-wide checks, land in General.
type IssuePartition struct {
	ByFeature map[string][]ValidationIssue `json:"by_feature,omitempty"`
	General   []ValidationIssue            `json:"general,omitempty"`
}

// PartitionIssues indexes errors and warnings by feature id, errors first so
// a feature's worst issue leads its bucket.
func (r ValidationResult) PartitionIssues() IssuePartition {
	var partition IssuePartition
	add := func(issue ValidationIssue) {
		if issue.FeatureID == "" {
			partition.General = append(partition.General, issue)
			return
		}
		if partition.ByFeature == nil {
			partition.ByFeature = map[string][]ValidationIssue{}
		}
		partition.ByFeature[issue.FeatureID] = append(partition.ByFeature[issue.FeatureID], issue)
	}
	for _, issue := range r.Errors {
		add(issue)
	}
	for _, issue := range r.Warnings {
		add(issue)
	}
	return partition
}

type AutofixApplied struct {
	FeatureID   string `json:"feature_id"`
	Check       string `json:"check"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

type AutofixPrompt struct {
	FeatureID   string `json:"feature_id"`
	Check       string `json:"check"`
	Description string `json:"description"`
}

type AutofixResult struct {
	FixesApplied               []AutofixApplied `json:"fixes_applied"`
	FixesRequiringConfirmation []AutofixPrompt  `json:"fixes_requiring_confirmation"`
	TotalFixed                 int              `json:"total_fixed"`
	TotalRequiringConfirmation int              `json:"total_requiring_confirmation"`
	Revalidation               ValidationResult `json:"revalidation"`
}

// Archive is an exported IMDF bundle plus the filename the converter
// suggested via Content-Disposition.
type Archive struct {
	Filename string
	Data     []byte
}

type GeocodeMatch struct {
	DisplayName string  `json:"display_name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Source      string  `json:"source"`
	Address     Address `json:"address"`
}
