package tmdb

// DiscoverRequest asks /discover/movie for a page of movies.
type DiscoverRequest struct {
	IncludeAdult *bool  `json:"include_adult,omitempty"`
	Language     string `json:"language,omitempty"`
	Page         int    `json:"page,omitempty"`
}

type RecommendationRequest struct {
	ID       string `json:"id" binding:"required"`
	Language string `json:"language,omitempty"`
	Page     int    `json:"page,omitempty"`
}

type DetailRequest struct {
	ID               string `json:"id" binding:"required"`
	Language         string `json:"language,omitempty"`
	AppendToResponse string `json:"append_to_response,omitempty"`
}

type SearchRequest struct {
	Query    string `json:"query" binding:"required"`
	Language string `json:"language,omitempty"`
	Page     int    `json:"page,omitempty"`
}

// MoviePage is the paged result of discover, search and recommendations.
type MoviePage struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

type Movie struct {
	Adult            bool    `json:"adult"`
	BackdropPath     string  `json:"backdrop_path,omitempty"`
	BackdropURL      string  `json:"backdrop_url,omitempty"`
	GenreIDs         []int   `json:"genre_ids,omitempty"`
	ID               int     `json:"id"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	Popularity       float64 `json:"popularity"`
	PosterPath       string  `json:"poster_path,omitempty"`
	PosterURL        string  `json:"poster_url,omitempty"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	Title            string  `json:"title"`
	Video            bool    `json:"video"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	MediaType        string  `json:"media_type,omitempty"`
}

// MovieDetail is /movie/{id}, optionally with appended videos and images.
type MovieDetail struct {
	Adult               bool                `json:"adult"`
	BackdropPath        string              `json:"backdrop_path,omitempty"`
	BackdropURL         string              `json:"backdrop_url,omitempty"`
	BelongsToCollection *Collection         `json:"belongs_to_collection,omitempty"`
	Budget              int64               `json:"budget"`
	Genres              []Genre             `json:"genres,omitempty"`
	Homepage            string              `json:"homepage,omitempty"`
	ID                  int                 `json:"id"`
	IMDbID              string              `json:"imdb_id,omitempty"`
	OriginalLanguage    string              `json:"original_language,omitempty"`
	OriginalTitle       string              `json:"original_title,omitempty"`
	Overview            string              `json:"overview,omitempty"`
	Popularity          float64             `json:"popularity"`
	PosterPath          string              `json:"poster_path,omitempty"`
	PosterURL           string              `json:"poster_url,omitempty"`
	ProductionCompanies []ProductionCompany `json:"production_companies,omitempty"`
	ProductionCountries []ProductionCountry `json:"production_countries,omitempty"`
	ReleaseDate         string              `json:"release_date,omitempty"`
	Revenue             int64               `json:"revenue"`
	Runtime             int                 `json:"runtime"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages,omitempty"`
	Status              string              `json:"status,omitempty"`
	Tagline             string              `json:"tagline,omitempty"`
	Title               string              `json:"title"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
	Video               bool                `json:"video"`
	Videos              *VideoCollection    `json:"videos,omitempty"`
	Images              *ImageCollection    `json:"images,omitempty"`
}

type VideoCollection struct {
	Results []Video `json:"results"`
}

type Video struct {
	ISO639      string `json:"iso_639_1,omitempty"`
	ISO3166     string `json:"iso_3166_1,omitempty"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	Site        string `json:"site"`
	Size        int    `json:"size"`
	Type        string `json:"type"`
	Official    bool   `json:"official"`
	PublishedAt string `json:"published_at,omitempty"`
	ID          string `json:"id"`
}

type ImageCollection struct {
	Backdrops []Image `json:"backdrops,omitempty"`
	Logos     []Image `json:"logos,omitempty"`
	Posters   []Image `json:"posters,omitempty"`
}

type Image struct {
	AspectRatio float64 `json:"aspect_ratio"`
	Height      int     `json:"height"`
	Width       int     `json:"width"`
	ISO639      string  `json:"iso_639_1,omitempty"`
	FilePath    string  `json:"file_path"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
}

type Collection struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	PosterPath   string `json:"poster_path,omitempty"`
	BackdropPath string `json:"backdrop_path,omitempty"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ProductionCompany struct {
	ID            int    `json:"id"`
	LogoPath      string `json:"logo_path,omitempty"`
	Name          string `json:"name"`
	OriginCountry string `json:"origin_country,omitempty"`
}

type ProductionCountry struct {
	ISO3166 string `json:"iso_3166_1"`
	Name    string `json:"name"`
}

type SpokenLanguage struct {
	EnglishName string `json:"english_name"`
	ISO639      string `json:"iso_639_1"`
	Name        string `json:"name"`
}
