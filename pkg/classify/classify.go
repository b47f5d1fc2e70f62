// Package classify inspects a user-selected file and declares its
// image kind. Classification never executes or modifies the file and
// is recomputed per operation, never cached across files.
//
// The rules are deterministic and ordered:
//
//  1. Only .zip and .img files are considered; everything else is
//     Unknown with heuristic confidence.
//  2. A .zip is a ROM archive (certain) when it contains the OTA
//     metadata entry META-INF/com/android/metadata or a payload.bin;
//     any other zip is Unknown.
//  3. A .img whose basename carries a deny prefix (vendor_boot,
//     init_boot, dtbo, super, bootloader) is Unknown: those partitions
//     are never flashed by this program.
//  4. A .img starting with the AVB0 header magic is a vbmeta image
//     (certain); a vbmeta-prefixed basename without the magic is
//     vbmeta (heuristic).
//  5. Boot and recovery images share the ANDROID! boot-image magic, so
//     the two are disambiguated by basename: "recovery.img",
//     "*-recovery.img" or any .img containing "recovery" is a recovery
//     image; "boot.img" or "*-boot.img" is a boot image. With the
//     magic present the verdict is certain, without it heuristic.
package classify

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/logging"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

// Header magics of the Android boot image and AVB vbmeta formats.
var (
	bootMagic   = []byte("ANDROID!")
	vbmetaMagic = []byte("AVB0")
)

// Zip entries that mark an archive as a flashable ROM/OTA package.
var romArchiveMarkers = []string{
	"META-INF/com/android/metadata",
	"payload.bin",
}

// Basename prefixes this program refuses to classify as flashable.
var denyPrefixes = []string{
	"vendor_boot",
	"init_boot",
	"dtbo",
	"super",
	"bootloader",
}

// Classify determines the image kind of the file at path.
func Classify(path string) (types.ImageClassification, error) {
	logger := logging.GetLogger("classify")

	unknown := types.ImageClassification{
		Kind:       types.ImageUnknown,
		Confidence: types.ConfidenceHeuristic,
	}

	info, err := os.Stat(path)
	if err != nil {
		return unknown, errors.Wrapf(err, errors.ErrUnreadableFile, "cannot read %s", path)
	}
	if info.IsDir() {
		return unknown, errors.Newf(errors.ErrUnreadableFile, "%s is a directory, not an image file", path)
	}

	base := strings.ToLower(filepath.Base(path))

	var result types.ImageClassification
	switch filepath.Ext(base) {
	case ".zip":
		result, err = classifyZip(path)
	case ".img":
		result, err = classifyImg(path, base)
	default:
		result = unknown
	}
	if err != nil {
		return unknown, err
	}

	logger.Debug().
		Str("path", path).
		Str("kind", string(result.Kind)).
		Str("confidence", string(result.Confidence)).
		Msg("Image classified")
	return result, nil
}

// classifyZip confirms a ROM archive by the presence of an
// update-metadata style entry; a generic zip stays Unknown.
func classifyZip(path string) (types.ImageClassification, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return types.ImageClassification{}, errors.Wrapf(err, errors.ErrUnreadableFile, "cannot open %s", path)
		}
		// Readable but not a zip archive.
		return types.ImageClassification{Kind: types.ImageUnknown, Confidence: types.ConfidenceHeuristic}, nil
	}
	defer r.Close()

	for _, f := range r.File {
		for _, marker := range romArchiveMarkers {
			if f.Name == marker {
				return types.ImageClassification{
					Kind:       types.ImageRomArchive,
					Confidence: types.ConfidenceCertain,
				}, nil
			}
		}
	}

	return types.ImageClassification{Kind: types.ImageUnknown, Confidence: types.ConfidenceHeuristic}, nil
}

// classifyImg applies the deny list, then magic-header inspection,
// then the filename rules.
func classifyImg(path, base string) (types.ImageClassification, error) {
	for _, pfx := range denyPrefixes {
		if strings.HasPrefix(base, pfx) {
			return types.ImageClassification{Kind: types.ImageUnknown, Confidence: types.ConfidenceHeuristic}, nil
		}
	}

	magic, err := readMagic(path)
	if err != nil {
		return types.ImageClassification{}, err
	}

	if bytes.HasPrefix(magic, vbmetaMagic) {
		return types.ImageClassification{Kind: types.ImageVbmeta, Confidence: types.ConfidenceCertain}, nil
	}

	confidence := types.ConfidenceHeuristic
	if bytes.HasPrefix(magic, bootMagic) {
		confidence = types.ConfidenceCertain
	}

	switch kind := kindFromBasename(base); kind {
	case types.ImageVbmeta:
		// vbmeta by name only; the AVB0 magic was absent.
		return types.ImageClassification{Kind: kind, Confidence: types.ConfidenceHeuristic}, nil
	case types.ImageUnknown:
		return types.ImageClassification{Kind: kind, Confidence: types.ConfidenceHeuristic}, nil
	default:
		return types.ImageClassification{Kind: kind, Confidence: confidence}, nil
	}
}

// kindFromBasename applies the filename rules. Recovery is checked
// before boot so "recovery-boot.img" style names resolve to recovery.
func kindFromBasename(base string) types.ImageKind {
	switch {
	case base == "recovery.img" || strings.HasSuffix(base, "-recovery.img"):
		return types.ImageRecovery
	case base == "boot.img" || strings.HasSuffix(base, "-boot.img"):
		return types.ImageBoot
	case strings.HasPrefix(base, "vbmeta"):
		return types.ImageVbmeta
	case strings.Contains(base, "recovery"):
		return types.ImageRecovery
	}
	return types.ImageUnknown
}

// readMagic reads the first 8 bytes of the file. A short file yields a
// short (or empty) magic, not an error.
func readMagic(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrUnreadableFile, "cannot open %s", path)
	}
	defer f.Close()

	buf := make([]byte, 8)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errors.Wrapf(err, errors.ErrUnreadableFile, "cannot read %s", path)
	}
	return buf[:n], nil
}
