package models

type TMDbSearchResponse struct {
	Page         int                `json:"page"`
	TotalPages   int                `json:"total_pages"`
	TotalResults int                `json:"total_results"`
	Results      []TMDbSearchResult `json:"results"`
}

type TMDbSearchResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"` // TV search results carry the title here
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	Popularity   float64 `json:"popularity"`
}

type TMDbMovieDetails struct {
	ID                  int              `json:"id"`
	Title               string           `json:"title"`
	Overview            string           `json:"overview"`
	ReleaseDate         string           `json:"release_date"`
	PosterPath          string           `json:"poster_path"`
	Genres              []TMDbGenre      `json:"genres"`
	ProductionCompanies []TMDbCompany    `json:"production_companies"`
	Credits             TMDbCredits      `json:"credits"`
	ReleaseDates        TMDbReleaseDates `json:"release_dates"`
}

type TMDbTVDetails struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	Overview     string        `json:"overview"`
	FirstAirDate string        `json:"first_air_date"`
	PosterPath   string        `json:"poster_path"`
	Genres       []TMDbGenre   `json:"genres"`
	Networks     []TMDbCompany `json:"networks"`
	CreatedBy    []TMDbPerson  `json:"created_by"`
	Credits      TMDbCredits   `json:"credits"`
}

type TMDbGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type TMDbCompany struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type TMDbPerson struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type TMDbCredits struct {
	Cast []TMDbCastMember `json:"cast"`
	Crew []TMDbCrewMember `json:"crew"`
}

type TMDbCastMember struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type TMDbCrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

type TMDbReleaseDates struct {
	Results []TMDbRegionReleases `json:"results"`
}

type TMDbRegionReleases struct {
	Region       string            `json:"iso_3166_1"`
	ReleaseDates []TMDbReleaseDate `json:"release_dates"`
}

type TMDbReleaseDate struct {
	ReleaseDate string `json:"release_date"`
	Type        int    `json:"type"`
	Note        string `json:"note"`
}
