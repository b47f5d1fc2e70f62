package download

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/r0man1an/LibreFlash/pkg/errors"
)

// LatestMagisk resolves the APK of the newest Magisk release from the
// GitHub releases API. Assets named Magisk-<tag>.apk are preferred;
// any .apk asset is accepted as fallback.
func (c *Client) LatestMagisk(ctx context.Context) (Artifact, error) {
	resp, err := c.get(ctx, c.magiskAPI)
	if err != nil {
		return Artifact{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Artifact{}, errors.Newf(errors.ErrDownloadFailed, "releases API answered %s", resp.Status)
	}

	var release struct {
		TagName string `json:"tag_name"`
		Assets  []struct {
			Name string `json:"name"`
			URL  string `json:"browser_download_url"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return Artifact{}, errors.Wrap(err, errors.ErrDownloadFailed, "cannot decode release")
	}
	if strings.TrimSpace(release.TagName) == "" {
		return Artifact{}, errors.New(errors.ErrDownloadFailed, "release has no tag")
	}

	pick := -1
	for i, a := range release.Assets {
		if strings.HasPrefix(a.Name, "Magisk-") && strings.HasSuffix(strings.ToLower(a.Name), ".apk") {
			pick = i
			break
		}
	}
	if pick < 0 {
		for i, a := range release.Assets {
			if strings.HasSuffix(strings.ToLower(a.Name), ".apk") {
				pick = i
				break
			}
		}
	}
	if pick < 0 {
		return Artifact{}, errors.Newf(errors.ErrNotFound, "release %s carries no APK asset", release.TagName)
	}

	asset := release.Assets[pick]
	if asset.URL == "" || asset.Name == "" {
		return Artifact{}, errors.New(errors.ErrDownloadFailed, "APK asset is missing its download URL")
	}
	return Artifact{URL: asset.URL, Filename: asset.Name, Source: "github"}, nil
}
