package domain

import "time"

// Platform names an external publishing channel.
type Platform string

const (
	PlatformNaverBlog Platform = "NAVER_BLOG"
	PlatformFacebook  Platform = "FACEBOOK"
	PlatformTelegram  Platform = "TELEGRAM"

	// PlatformAdSense keys the reporting credential in the token store. It is not a publish target.
	PlatformAdSense Platform = "ADSENSE"
)

// SocialPostingHistory records a successful publish. (ContentID, Platform) is unique.
type SocialPostingHistory struct {
	ID        int64
	ContentID int64
	Platform  Platform
	PostID    string
	PostURL   string
	PostedAt  time.Time
}

// PublishOutcome is the result class of one dispatch attempt.
type PublishOutcome string

const (
	OutcomePosted        PublishOutcome = "POSTED"
	OutcomeAlreadyPosted PublishOutcome = "ALREADY_POSTED"
	OutcomeFailed        PublishOutcome = "FAILED"
)

// PostResult is what a platform returns for a created post.
type PostResult struct {
	PostID string
	URL    string
}

// Token is an access credential for one platform.
type Token struct {
	Platform     Platform  `json:"platform"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Empty reports whether no access token is present.
func (t Token) Empty() bool {
	return t.AccessToken == ""
}
