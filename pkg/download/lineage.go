package download

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/logging"
)

// Build is one entry of the official nightly index.
type Build struct {
	Filename string `json:"filename"`
	Datetime int64  `json:"datetime"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Version  string `json:"version"`
}

// mirrorbitsProbeLimit bounds how many recent build dates the artifact
// probe walks before giving up.
const mirrorbitsProbeLimit = 12

// archiveProbeLimit bounds how many archive builds get their candidate
// URLs probed.
const archiveProbeLimit = 3

var buildDateRe = regexp.MustCompile(`-(\d{8})-`)
var lineageVersionRe = regexp.MustCompile(`^lineage-(\d+)\.(\d+)-`)

// NightlyBuilds returns the nightly index for a device, newest first.
func (c *Client) NightlyBuilds(ctx context.Context, device string) ([]Build, error) {
	url := fmt.Sprintf("%s/%s/nightly/0", c.nightlyAPI, device)
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, errors.Newf(errors.ErrDownloadFailed, "nightly index answered %s for %s", resp.Status, device)
	}

	var payload struct {
		Response []Build `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, errors.ErrDownloadFailed, "cannot decode nightly index")
	}
	if len(payload.Response) == 0 {
		return nil, errors.Newf(errors.ErrNotFound, "no nightly builds for %s", device)
	}

	builds := payload.Response
	sort.Slice(builds, func(i, j int) bool { return builds[i].Datetime > builds[j].Datetime })
	return builds, nil
}

// LatestRom resolves the newest nightly ROM for a device, falling back
// to the community archive when the device has no current nightlies.
func (c *Client) LatestRom(ctx context.Context, device string) (Artifact, error) {
	builds, err := c.NightlyBuilds(ctx, device)
	if err == nil {
		return Artifact{URL: builds[0].URL, Filename: builds[0].Filename, Source: "nightly"}, nil
	}
	if !errors.IsErrorCode(err, errors.ErrNotFound) && !errors.IsErrorCode(err, errors.ErrDownloadFailed) {
		return Artifact{}, err
	}

	logger := logging.GetLogger("download")
	logger.Info().
		Str("device", device).
		Msg("No nightly builds, trying the archive")
	return c.LatestArchiveBuild(ctx, device)
}

// LatestArtifact probes the mirror network for a per-build image
// (recovery.img, boot.img or vbmeta.img): nightlies publish these next
// to the ROM under the build date, but the index does not list them,
// so each recent date is probed until one answers.
func (c *Client) LatestArtifact(ctx context.Context, device, artifact string) (Artifact, error) {
	builds, err := c.NightlyBuilds(ctx, device)
	if err != nil {
		return Artifact{}, err
	}

	tried := 0
	for _, b := range builds {
		if tried >= mirrorbitsProbeLimit {
			break
		}
		date := buildDate(b.Filename)
		if date == "" {
			continue
		}

		url := fmt.Sprintf("%s/%s/%s/%s", c.mirrorbitsBase, device, date, artifact)
		if c.head(ctx, url) {
			return Artifact{URL: url, Filename: artifact, Source: "mirrorbits"}, nil
		}
		tried++
	}

	return Artifact{}, errors.Newf(errors.ErrNotFound,
		"%s not found on the mirror network for %s (probed %d build dates)", artifact, device, tried)
}

// LatestRecoveryOrBoot resolves the image used to enter recovery.
// Devices that ship boot-as-recovery (bootFirst) get boot.img directly;
// everything else tries recovery.img and falls back to boot.img.
func (c *Client) LatestRecoveryOrBoot(ctx context.Context, device string, bootFirst bool) (Artifact, error) {
	if bootFirst {
		return c.LatestArtifact(ctx, device, "boot.img")
	}

	artifact, err := c.LatestArtifact(ctx, device, "recovery.img")
	if err == nil {
		return artifact, nil
	}
	if !errors.IsErrorCode(err, errors.ErrNotFound) {
		return Artifact{}, err
	}
	return c.LatestArtifact(ctx, device, "boot.img")
}

// archiveBuild is one entry of the community archive index. The index
// is loosely typed; numeric fields arrive as numbers or strings.
type archiveBuild struct {
	Device   string     `json:"device"`
	Filename string     `json:"filename"`
	Name     string     `json:"name"`
	ID       flexString `json:"id"`
	Datetime flexString `json:"datetime"`
}

func (b archiveBuild) filename() string {
	if b.Filename != "" {
		return strings.TrimSpace(b.Filename)
	}
	return strings.TrimSpace(b.Name)
}

// sortKey orders archive builds: explicit timestamp first, then the
// lineage version and build date parsed from the filename.
func (b archiveBuild) sortKey() [4]int64 {
	fn := b.filename()
	date := int64(0)
	if m := buildDateRe.FindStringSubmatch(fn); m != nil {
		date, _ = strconv.ParseInt(m[1], 10, 64)
	}
	var major, minor int64
	if m := lineageVersionRe.FindStringSubmatch(fn); m != nil {
		major, _ = strconv.ParseInt(m[1], 10, 64)
		minor, _ = strconv.ParseInt(m[2], 10, 64)
	}
	if ts, err := strconv.ParseInt(string(b.Datetime), 10, 64); err == nil && ts > 0 {
		return [4]int64{ts, major, minor, date}
	}
	return [4]int64{date, major, minor, 0}
}

// ArchiveDevices lists every device codename present in the archive.
func (c *Client) ArchiveDevices(ctx context.Context) ([]string, error) {
	builds, err := c.archiveBuilds(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var devices []string
	for _, b := range builds {
		device := strings.TrimSpace(b.Device)
		if device == "" {
			continue
		}
		if _, ok := seen[device]; !ok {
			seen[device] = struct{}{}
			devices = append(devices, device)
		}
	}
	sort.Strings(devices)
	return devices, nil
}

// LatestArchiveBuild resolves the newest downloadable archive build for
// a device. Candidate URLs are probed because the archive's file hosts
// do not all carry every build.
func (c *Client) LatestArchiveBuild(ctx context.Context, device string) (Artifact, error) {
	if device == "" {
		return Artifact{}, errors.New(errors.ErrInternal, "missing device codename")
	}

	all, err := c.archiveBuilds(ctx)
	if err != nil {
		return Artifact{}, err
	}

	var builds []archiveBuild
	for _, b := range all {
		if strings.TrimSpace(b.Device) == device {
			builds = append(builds, b)
		}
	}
	if len(builds) == 0 {
		return Artifact{}, errors.Newf(errors.ErrNotFound, "no archive builds for %s", device)
	}

	sort.Slice(builds, func(i, j int) bool {
		ki, kj := builds[i].sortKey(), builds[j].sortKey()
		for n := range ki {
			if ki[n] != kj[n] {
				return ki[n] > kj[n]
			}
		}
		return false
	})

	probed := 0
	for _, b := range builds {
		if probed >= archiveProbeLimit {
			break
		}
		filename := b.filename()
		if filename == "" {
			continue
		}
		probed++

		for _, url := range c.archiveCandidateURLs(filename, string(b.ID)) {
			if c.head(ctx, url) {
				return Artifact{URL: url, Filename: filename, Source: "archive"}, nil
			}
		}
	}

	return Artifact{}, errors.Newf(errors.ErrNotFound, "no downloadable archive URL for %s", device)
}

func (c *Client) archiveBuilds(ctx context.Context) ([]archiveBuild, error) {
	resp, err := c.get(ctx, c.archiveBase+"/api/builds")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, errors.Newf(errors.ErrDownloadFailed, "archive index answered %s", resp.Status)
	}

	// The index is either a bare list or wrapped in {"builds": [...]}.
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrDownloadFailed, "cannot decode archive index")
	}

	var wrapped struct {
		Builds []archiveBuild `json:"builds"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Builds != nil {
		return wrapped.Builds, nil
	}

	var builds []archiveBuild
	if err := json.Unmarshal(raw, &builds); err != nil {
		return nil, errors.Wrap(err, errors.ErrDownloadFailed, "unexpected archive index shape")
	}
	return builds, nil
}

func (c *Client) archiveCandidateURLs(filename, buildID string) []string {
	filename = strings.TrimPrefix(filename, "/")
	var urls []string
	for _, base := range c.archiveFileBases {
		urls = append(urls, base+"/"+filename)
	}
	if buildID != "" {
		urls = append(urls, fmt.Sprintf("%s/build/%s/download", c.archiveBase, buildID))
	}
	return urls
}

// buildDate extracts the YYYYMMDD build date embedded in a nightly
// filename, or "" when absent.
func buildDate(filename string) string {
	m := buildDateRe.FindStringSubmatch(filename)
	if m == nil {
		return ""
	}
	return m[1]
}

// flexString tolerates JSON numbers and strings in the same field.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}
