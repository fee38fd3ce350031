package jikan

// SearchFilter holds the /anime search parameters. Zero values are not sent.
type SearchFilter struct {
	UserID        string  `json:"userId,omitempty"`
	Q             string  `json:"q,omitempty"`
	SFW           *bool   `json:"sfw,omitempty"`
	Unapproved    *bool   `json:"unapproved,omitempty"`
	Page          int     `json:"page,omitempty"`
	Limit         int     `json:"limit,omitempty"`
	Type          string  `json:"type,omitempty"`
	Score         float64 `json:"score,omitempty"`
	MinScore      float64 `json:"min_score,omitempty"`
	MaxScore      float64 `json:"max_score,omitempty"`
	Status        string  `json:"status,omitempty"`
	Rating        string  `json:"rating,omitempty"`
	Genres        string  `json:"genres,omitempty"`
	GenresExclude string  `json:"genres_exclude,omitempty"`
	OrderBy       string  `json:"order_by,omitempty"`
	Sort          string  `json:"sort,omitempty"`
	Letter        string  `json:"letter,omitempty"`
	Producers     string  `json:"producers,omitempty"`
	StartDate     string  `json:"start_date,omitempty"`
	EndDate       string  `json:"end_date,omitempty"`
}

type Pagination struct {
	LastVisiblePage int              `json:"last_visible_page"`
	HasNextPage     bool             `json:"has_next_page"`
	CurrentPage     int              `json:"current_page,omitempty"`
	Items           *PaginationItems `json:"items,omitempty"`
}

type PaginationItems struct {
	Count   int `json:"count"`
	Total   int `json:"total"`
	PerPage int `json:"per_page"`
}

// AnimeList is a paged list of anime.
type AnimeList struct {
	Pagination Pagination `json:"pagination"`
	Data       []Anime    `json:"data"`
}

// AnimeDetail wraps a single anime.
type AnimeDetail struct {
	Data Anime `json:"data"`
}

// Anime is a Jikan anime entry. MyStatus and MyScore are filled from the caller's
// watch-list, never by Jikan.
type Anime struct {
	MyStatus       string       `json:"my_status,omitempty"`
	MyScore        *int         `json:"my_score,omitempty"`
	MalID          int          `json:"mal_id"`
	URL            string       `json:"url,omitempty"`
	Approved       bool         `json:"approved"`
	Title          string       `json:"title"`
	TitleEnglish   string       `json:"title_english,omitempty"`
	TitleJapanese  string       `json:"title_japanese,omitempty"`
	TitleSynonyms  []string     `json:"title_synonyms,omitempty"`
	Titles         []TitleEntry `json:"titles,omitempty"`
	Type           string       `json:"type,omitempty"`
	Source         string       `json:"source,omitempty"`
	Episodes       *int         `json:"episodes"`
	Status         string       `json:"status,omitempty"`
	Airing         bool         `json:"airing"`
	Aired          *Aired       `json:"aired,omitempty"`
	Duration       string       `json:"duration,omitempty"`
	Rating         string       `json:"rating,omitempty"`
	Score          *float64     `json:"score"`
	ScoredBy       *int         `json:"scored_by"`
	Rank           *int         `json:"rank"`
	Popularity     *int         `json:"popularity"`
	Members        *int         `json:"members"`
	Favorites      *int         `json:"favorites"`
	Synopsis       string       `json:"synopsis,omitempty"`
	Background     string       `json:"background,omitempty"`
	Season         string       `json:"season,omitempty"`
	Year           *int         `json:"year"`
	Broadcast      *Broadcast   `json:"broadcast,omitempty"`
	Images         *Images      `json:"images,omitempty"`
	Trailer        *Trailer     `json:"trailer,omitempty"`
	Producers      []Resource   `json:"producers,omitempty"`
	Licensors      []Resource   `json:"licensors,omitempty"`
	Studios        []Resource   `json:"studios,omitempty"`
	Genres         []Resource   `json:"genres,omitempty"`
	ExplicitGenres []Resource   `json:"explicit_genres,omitempty"`
	Themes         []Resource   `json:"themes,omitempty"`
	Demographics   []Resource   `json:"demographics,omitempty"`
}

type TitleEntry struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

// Resource is the {mal_id, type, name, url} reference Jikan uses for genres, studios
// and companies.
type Resource struct {
	MalID int    `json:"mal_id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

type Aired struct {
	From   string     `json:"from,omitempty"`
	To     string     `json:"to,omitempty"`
	Prop   *AiredProp `json:"prop,omitempty"`
	String string     `json:"string,omitempty"`
}

type AiredProp struct {
	From DateParts `json:"from"`
	To   DateParts `json:"to"`
}

type DateParts struct {
	Day   *int `json:"day"`
	Month *int `json:"month"`
	Year  *int `json:"year"`
}

type Broadcast struct {
	Day      string `json:"day,omitempty"`
	Time     string `json:"time,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	String   string `json:"string,omitempty"`
}

type Images struct {
	JPG  *ImageSet `json:"jpg,omitempty"`
	WebP *ImageSet `json:"webp,omitempty"`
}

type ImageSet struct {
	ImageURL      string `json:"image_url,omitempty"`
	SmallImageURL string `json:"small_image_url,omitempty"`
	LargeImageURL string `json:"large_image_url,omitempty"`
}

type Trailer struct {
	YouTubeID string         `json:"youtube_id,omitempty"`
	URL       string         `json:"url,omitempty"`
	EmbedURL  string         `json:"embed_url,omitempty"`
	Images    *TrailerImages `json:"images,omitempty"`
}

type TrailerImages struct {
	ImageURL        string `json:"image_url,omitempty"`
	SmallImageURL   string `json:"small_image_url,omitempty"`
	MediumImageURL  string `json:"medium_image_url,omitempty"`
	LargeImageURL   string `json:"large_image_url,omitempty"`
	MaximumImageURL string `json:"maximum_image_url,omitempty"`
}

// Pictures is the /anime/{id}/pictures response.
type Pictures struct {
	Data []Images `json:"data"`
}

// Statistics is the /anime/{id}/statistics response.
type Statistics struct {
	Data struct {
		Watching    int          `json:"watching"`
		Completed   int          `json:"completed"`
		OnHold      int          `json:"on_hold"`
		Dropped     int          `json:"dropped"`
		PlanToWatch int          `json:"plan_to_watch"`
		Total       int          `json:"total"`
		Scores      []ScoreVotes `json:"scores"`
	} `json:"data"`
}

type ScoreVotes struct {
	Score      int     `json:"score"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// Staff is the /anime/{id}/staff response.
type Staff struct {
	Data []StaffMember `json:"data"`
}

type StaffMember struct {
	Person    Person   `json:"person"`
	Positions []string `json:"positions"`
}

type Person struct {
	MalID  int     `json:"mal_id"`
	URL    string  `json:"url"`
	Images *Images `json:"images,omitempty"`
	Name   string  `json:"name"`
}

// Characters is the /anime/{id}/characters response.
type Characters struct {
	Data []CharacterEntry `json:"data"`
}

type CharacterEntry struct {
	Character   Person       `json:"character"`
	Role        string       `json:"role"`
	Favorites   int          `json:"favorites"`
	VoiceActors []VoiceActor `json:"voice_actors,omitempty"`
}

type VoiceActor struct {
	Person   Person `json:"person"`
	Language string `json:"language"`
}

// Seasons is the /seasons archive.
type Seasons struct {
	Data       []SeasonYear `json:"data"`
	Pagination Pagination   `json:"pagination"`
}

type SeasonYear struct {
	Year    int      `json:"year"`
	Seasons []string `json:"seasons"`
}
