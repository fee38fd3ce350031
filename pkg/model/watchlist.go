package model

// Watch statuses as exported by MyAnimeList.
const (
	StatusCompleted   = "Completed"
	StatusDropped     = "Dropped"
	StatusOnHold      = "On-Hold"
	StatusPlanToWatch = "Plan to Watch"
	StatusWatching    = "Watching"
)

// Statuses lists every known watch status.
var Statuses = []string{StatusCompleted, StatusDropped, StatusOnHold, StatusPlanToWatch, StatusWatching}

// UserAnimeProfile is the per-user summary of a watch list.
type UserAnimeProfile struct {
	Base             `bson:",inline"`
	UserID           string `bson:"user_id" json:"user_id"`
	UserName         string `bson:"user_name" json:"user_name"`
	ExportType       int    `bson:"user_export_type" json:"user_export_type"`
	TotalAnime       int    `bson:"user_total_anime" json:"user_total_anime"`
	TotalWatching    int    `bson:"user_total_watching" json:"user_total_watching"`
	TotalCompleted   int    `bson:"user_total_completed" json:"user_total_completed"`
	TotalOnHold      int    `bson:"user_total_onhold" json:"user_total_onhold"`
	TotalDropped     int    `bson:"user_total_dropped" json:"user_total_dropped"`
	TotalPlanToWatch int    `bson:"user_total_plantowatch" json:"user_total_plantowatch"`
}

// counter returns the status counter for status, or nil for an unknown status.
func (p *UserAnimeProfile) counter(status string) *int {
	switch status {
	case StatusCompleted:
		return &p.TotalCompleted
	case StatusDropped:
		return &p.TotalDropped
	case StatusOnHold:
		return &p.TotalOnHold
	case StatusPlanToWatch:
		return &p.TotalPlanToWatch
	case StatusWatching:
		return &p.TotalWatching
	default:
		return nil
	}
}

// AdjustStatus adds delta to the counter of status. Unknown statuses are ignored and
// counters never go below zero.
func (p *UserAnimeProfile) AdjustStatus(status string, delta int) {
	if c := p.counter(status); c != nil {
		*c = max(0, *c+delta)
	}
}

// AdjustTotal adds delta to the total, never going below zero.
func (p *UserAnimeProfile) AdjustTotal(delta int) {
	p.TotalAnime = max(0, p.TotalAnime+delta)
}

// ResetCounters zeroes the total and every status counter.
func (p *UserAnimeProfile) ResetCounters() {
	p.TotalAnime = 0
	for _, s := range Statuses {
		*p.counter(s) = 0
	}
}

// UserAnime is one entry of a user's watch list.
type UserAnime struct {
	Base            `bson:",inline"`
	SeriesID        int     `bson:"series_animedb_id" json:"series_animedb_id"`
	SeriesTitle     string  `bson:"series_title" json:"series_title"`
	SeriesType      string  `bson:"series_type" json:"series_type"`
	SeriesEpisodes  int     `bson:"series_episodes" json:"series_episodes"`
	MyID            int     `bson:"my_id" json:"my_id"`
	WatchedEpisodes int     `bson:"my_watched_episodes" json:"my_watched_episodes"`
	StartDate       string  `bson:"my_start_date" json:"my_start_date"`
	FinishDate      string  `bson:"my_finish_date" json:"my_finish_date"`
	Rated           string  `bson:"my_rated" json:"my_rated"`
	Score           int     `bson:"my_score" json:"my_score"`
	Storage         string  `bson:"my_storage" json:"my_storage"`
	StorageValue    float64 `bson:"my_storage_value" json:"my_storage_value"`
	Status          string  `bson:"my_status" json:"my_status"`
	OldStatus       string  `bson:"my_old_status" json:"my_old_status"`
	Comments        string  `bson:"my_comments" json:"my_comments"`
	TimesWatched    int     `bson:"my_times_watched" json:"my_times_watched"`
	RewatchValue    string  `bson:"my_rewatch_value" json:"my_rewatch_value"`
	Priority        string  `bson:"my_priority" json:"my_priority"`
	Tags            string  `bson:"my_tags" json:"my_tags"`
	Rewatching      int     `bson:"my_rewatching" json:"my_rewatching"`
	RewatchingEp    int     `bson:"my_rewatching_ep" json:"my_rewatching_ep"`
	Discuss         int     `bson:"my_discuss" json:"my_discuss"`
	SNS             string  `bson:"my_sns" json:"my_sns"`
	UpdateOnImport  int     `bson:"update_on_import" json:"update_on_import"`
	UserID          string  `bson:"UserId" json:"UserId"`
}

// FetchMyList is an imported MyAnimeList export.
type FetchMyList struct {
	MyAnimeList MyAnimeList `json:"myanimelist"`
	UserName    string      `json:"username"`
	UserID      string      `json:"userId"`
}

type MyAnimeList struct {
	MyInfo *UserAnimeProfile `json:"myinfo"`
	Anime  []UserAnime       `json:"anime"`
}
