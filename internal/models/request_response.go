package models

// Request models
type SignUpRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Name        string `json:"name" binding:"required"`
	ReferrerUID string `json:"referrerUid"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// IssueTokensRequest carries no sign or magnitude rule on Amount; corrections may be negative.
type IssueTokensRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Amount      int64  `json:"amount"`
	Reason      string `json:"reason" binding:"required"`
	Description string `json:"description"`
}

type ProcessReferralRequest struct {
	ReferrerUID string `json:"referrerUid"`
	NewUserID   string `json:"newUserId"`
}

type UpdateSettingsRequest struct {
	SignupBonus       int64   `json:"signupBonus" binding:"min=0"`
	PracticeReward    int64   `json:"practiceReward" binding:"min=0"`
	PracticeThreshold float64 `json:"practiceThreshold" binding:"min=0,max=100"`
	TranslationCost   int64   `json:"translationCost" binding:"min=0"`
	ReferralBonus     int64   `json:"referralBonus" binding:"min=0"`
}

type FinancialEntryRequest struct {
	Type        string `json:"type" binding:"required,oneof=revenue expense"`
	AmountCents int64  `json:"amountCents" binding:"required,min=1"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

type CreateRoomRequest struct {
	Topic         string   `json:"topic" binding:"required"`
	InvitedEmails []string `json:"invitedEmails"`
	EmceeUIDs     []string `json:"emceeUids"`
}

type PostMessageRequest struct {
	Text            string `json:"text" binding:"required"`
	SpeakerLanguage string `json:"speakerLanguage"`
}

type ResetLanguageStatsRequest struct {
	LanguageCode string `json:"languageCode" binding:"required"`
}

type PracticeAttemptRequest struct {
	PhraseID     string  `json:"phraseId" binding:"required"`
	LanguageCode string  `json:"languageCode" binding:"required"`
	Accuracy     float64 `json:"accuracy" binding:"min=0,max=100"`
}

type SpeechRequest struct {
	Text            string `json:"text" binding:"required"`
	LanguageTag     string `json:"languageTag" binding:"required"`
	VoicePreference string `json:"voicePreference" binding:"omitempty,oneof=male female"`
}

type TranslateRequest struct {
	Text         string `json:"text" binding:"required"`
	FromLanguage string `json:"fromLanguage" binding:"required"`
	ToLanguage   string `json:"toLanguage" binding:"required"`
}

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit" binding:"omitempty,min=1,max=10"`
}

type ScrapeRequest struct {
	URL string `json:"url" binding:"required,url"`
}

type ModerationPost struct {
	ID      string `json:"id" binding:"required"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

type ModerationRequest struct {
	Rules string           `json:"rules" binding:"required"`
	Posts []ModerationPost `json:"posts" binding:"required,min=1,dive"`
}

// Response models

// ActionResponse is the uniform result of every server action
type ActionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type AuthResponse struct {
	Success      bool   `json:"success"`
	UserID       string `json:"userId,omitempty"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	TokenBalance int64  `json:"tokenBalance"`
	Token        string `json:"token,omitempty"`
	ExpiresIn    int    `json:"expiresIn,omitempty"`
}

type TransactionLogsResponse struct {
	Success bool             `json:"success"`
	Logs    []TransactionLog `json:"logs"`
}

type SettingsResponse struct {
	Success  bool        `json:"success"`
	Settings AppSettings `json:"settings"`
}

type FinancialLedgerResponse struct {
	Success bool             `json:"success"`
	Entries []FinancialEntry `json:"entries"`
}

type RoomResponse struct {
	Success bool     `json:"success"`
	Room    SyncRoom `json:"room"`
}

type MessagesResponse struct {
	Success  bool          `json:"success"`
	RoomID   string        `json:"roomId"`
	Messages []RoomMessage `json:"messages"`
}

type NotificationsResponse struct {
	Success       bool           `json:"success"`
	Notifications []Notification `json:"notifications"`
}

type PracticeAttemptResponse struct {
	Success      bool  `json:"success"`
	Passed       bool  `json:"passed"`
	TokensEarned int64 `json:"tokensEarned"`
}

type SpeechResponse struct {
	Success     bool   `json:"success"`
	AudioBase64 string `json:"audioBase64"`
	Voice       string `json:"voice"`
}

type TranslateResponse struct {
	Success        bool   `json:"success"`
	TranslatedText string `json:"translatedText"`
	TokensSpent    int64  `json:"tokensSpent"`
	TokenBalance   int64  `json:"tokenBalance"`
}

type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type SearchResponse struct {
	Success bool           `json:"success"`
	Results []SearchResult `json:"results"`
}

type ScrapeResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type ModerationResponse struct {
	Success          bool     `json:"success"`
	Judgment         string   `json:"judgment"`
	Reasoning        string   `json:"reasoning"`
	OffendingPostIDs []string `json:"offendingPostIds"`
}

type FinancialEntryResponse struct {
	Success bool           `json:"success"`
	Entry   FinancialEntry `json:"entry"`
}

type MessageResponse struct {
	Success bool        `json:"success"`
	Message RoomMessage `json:"message"`
}

type PracticeHistoryResponse struct {
	Success bool              `json:"success"`
	History []PracticeHistory `json:"history"`
}
