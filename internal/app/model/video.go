package model

// VideoRecord is the resolved metadata for one remote video. It is produced
// by the locator and read-only afterwards; callers must check URLs for
// emptiness before attempting a download.
type VideoRecord struct {
	ID       string
	Title    string
	Author   string
	URLs     []string
	CoverURL string
	// IsGallery marks image-gallery posts, which carry no playable video.
	IsGallery bool
}

// HasMedia reports whether the locator found at least one usable URL.
func (r *VideoRecord) HasMedia() bool {
	return len(r.URLs) > 0
}

// AwemeDetail mirrors the subset of the platform detail payload we consume.
type AwemeDetail struct {
	AwemeID   string `json:"aweme_id"`
	Desc      string `json:"desc"`
	AwemeType int    `json:"aweme_type"`
	Author    struct {
		Nickname string `json:"nickname"`
	} `json:"author"`
	Video struct {
		PlayAddr     AddrList `json:"play_addr"`
		DownloadAddr AddrList `json:"download_addr"`
		Cover        AddrList `json:"cover"`
		OriginCover  AddrList `json:"origin_cover"`
	} `json:"video"`
	Images []struct {
		URLList []string `json:"url_list"`
	} `json:"images"`
}

// AddrList is the platform's url_list envelope.
type AddrList struct {
	URLList []string `json:"url_list"`
}

// DetailResponse is the direct platform detail endpoint envelope.
type DetailResponse struct {
	StatusCode  int          `json:"status_code"`
	StatusMsg   string       `json:"status_msg"`
	AwemeDetail *AwemeDetail `json:"aweme_detail"`
}

// CandidateURLs collects every candidate media URL in the payload,
// play addresses first.
func (d *AwemeDetail) CandidateURLs() []string {
	urls := append([]string{}, d.Video.PlayAddr.URLList...)
	urls = append(urls, d.Video.DownloadAddr.URLList...)
	return urls
}

// CoverURL returns the first cover image URL, if any.
func (d *AwemeDetail) CoverURL() string {
	if len(d.Video.Cover.URLList) > 0 {
		return d.Video.Cover.URLList[0]
	}
	if len(d.Video.OriginCover.URLList) > 0 {
		return d.Video.OriginCover.URLList[0]
	}
	return ""
}
