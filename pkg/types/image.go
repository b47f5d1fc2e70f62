package types

// ImageKind is the classified kind of a user-selected file.
type ImageKind string

const (
	ImageRecovery   ImageKind = "recovery"
	ImageBoot       ImageKind = "boot"
	ImageVbmeta     ImageKind = "vbmeta"
	ImageRomArchive ImageKind = "rom-archive"
	ImageUnknown    ImageKind = "unknown"
)

// Confidence states how the classifier arrived at its verdict.
type Confidence string

const (
	ConfidenceCertain   Confidence = "certain"
	ConfidenceHeuristic Confidence = "heuristic"
)

// ImageClassification is a derived fact about a file. It is recomputed
// per operation and never cached across files, since the user may
// replace the file at any time before execution starts.
type ImageClassification struct {
	Kind       ImageKind
	Confidence Confidence
}
