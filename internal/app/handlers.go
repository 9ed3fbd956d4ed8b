package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"recycle.ecomap.kr/internal/config"
	"recycle.ecomap.kr/internal/geo"
	"recycle.ecomap.kr/internal/models"
	"recycle.ecomap.kr/internal/navigation"
	"recycle.ecomap.kr/internal/present"
	"recycle.ecomap.kr/internal/ranking"
	"recycle.ecomap.kr/internal/reference"
	"recycle.ecomap.kr/internal/source"
	"recycle.ecomap.kr/internal/utils"
)

const (
	maxTopN        = 100
	maxUploadBytes = 32 << 20
)

// HealthStatus is the body of /v1/healthcheck.
// The service is ready once the configured source has been loaded.
type HealthStatus struct {
	Status            string            `json:"status"`
	Environment       string            `json:"environment"`
	Version           string            `json:"version"`
	Records           int               `json:"records"`
	DroppedRows       int               `json:"dropped_rows"`
	DataReferenceDate *utils.CustomTime `json:"data_reference_date,omitempty"`
	Ready             bool              `json:"ready"`
}

func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	settings := app.ConfigService.Config.GetSettings()

	key := settings.SourceURL
	if key == "" {
		key = settings.SourceFile
	}
	status := HealthStatus{
		Status:            "available",
		Environment:       app.ConfigService.Config.Env,
		Version:           app.Version,
		DataReferenceDate: settings.DataReferenceDate,
	}
	if ds, ok := app.SourceService.Current(key); ok {
		status.Records = len(ds.Records)
		status.DroppedRows = ds.DroppedRows
		status.Ready = true
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

type landmarkView struct {
	models.Landmark
	Default bool `json:"default"`
}

func (app *Application) landmarksHandler(w http.ResponseWriter, r *http.Request) {
	table := app.landmarkTable(app.ConfigService.Config.GetSettings())
	def := table.Default().Name

	views := []landmarkView{}
	for _, lm := range table.Landmarks() {
		views = append(views, landmarkView{Landmark: lm, Default: lm.Name == def})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"landmarks": views})
}

func (app *Application) nearestHandler(w http.ResponseWriter, r *http.Request) {
	res, err := app.rank(w, r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, present.NewResponse(res))
}

func (app *Application) nearestGeoJSONHandler(w http.ResponseWriter, r *http.Request) {
	res, err := app.rank(w, r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	body, err := present.MarkersGeoJSON(res).MarshalJSON()
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(body)
}

func (app *Application) nearestXLSXHandler(w http.ResponseWriter, r *http.Request) {
	res, err := app.rank(w, r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := present.WriteXLSX(&buf, res); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="nearest-bins.xlsx"`)
	w.Write(buf.Bytes())
}

func (app *Application) qrHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	link := q.Get("url")
	if link == "" {
		app.errorResponse(w, r, &paramError{Param: "url", Msg: "is required"})
		return
	}
	size := 0
	if s := q.Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			app.errorResponse(w, r, &paramError{Param: "size", Msg: "must be an integer"})
			return
		}
		size = n
	}

	png, err := navigation.QRCodePNG(link, size)
	if err != nil {
		if errors.Is(err, navigation.ErrLinkNotAllowed) {
			err = &paramError{Param: "url", Msg: err.Error()}
		}
		app.errorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (app *Application) landmarkTable(settings config.Settings) *reference.Table {
	return reference.NewTable(settings.Landmarks, settings.DefaultLandmark)
}

// rank runs the ranking pipeline for a request. POST requests may carry their
// own source as the multipart field "file"; everything else uses the default source.
func (app *Application) rank(w http.ResponseWriter, r *http.Request) (*ranking.Result, error) {
	settings := app.ConfigService.Config.GetSettings()

	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, &paramError{Param: "file", Msg: err.Error()}
		}
	}
	req, err := parseRankRequest(r, settings.TopN)
	if err != nil {
		return nil, err
	}

	var ds *models.Dataset
	if r.Method == http.MethodPost {
		ds, err = app.loadUpload(r, settings)
	} else {
		ds, err = app.SourceService.Dataset(r.Context(), settings.SourceFile, settings.SourceURL)
	}
	if err != nil {
		return nil, err
	}
	return app.RankingService.Run(ds, app.landmarkTable(settings), req)
}

func (app *Application) loadUpload(r *http.Request, settings config.Settings) (*models.Dataset, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return app.SourceService.Dataset(r.Context(), settings.SourceFile, settings.SourceURL)
	}
	if err != nil {
		return nil, &paramError{Param: "file", Msg: err.Error()}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &paramError{Param: "file", Msg: err.Error()}
	}
	return app.SourceService.LoadBytes(source.UploadKey, header.Filename, data)
}

// parseRankRequest reads lat, lng, landmark and top_n from the query string
// or form. lat and lng must be given together.
func parseRankRequest(r *http.Request, defaultTopN int) (ranking.Request, error) {
	req := ranking.Request{
		LandmarkKey: strings.TrimSpace(r.FormValue("landmark")),
		TopN:        defaultTopN,
	}

	latStr, lngStr := r.FormValue("lat"), r.FormValue("lng")
	if latStr != "" || lngStr != "" {
		live, err := parseCoordinate(latStr, lngStr)
		if err != nil {
			return req, err
		}
		req.Live = &live
	}

	if s := r.FormValue("top_n"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return req, &paramError{Param: "top_n", Msg: "must be an integer"}
		}
		if n < 1 || n > maxTopN {
			return req, &paramError{Param: "top_n", Msg: "must be between 1 and " + strconv.Itoa(maxTopN)}
		}
		req.TopN = n
	}
	return req, nil
}

func parseCoordinate(latStr, lngStr string) (models.Coordinate, error) {
	if latStr == "" || lngStr == "" {
		return models.Coordinate{}, &paramError{Param: "lat/lng", Msg: "both must be given"}
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return models.Coordinate{}, &paramError{Param: "lat", Msg: "must be a number"}
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return models.Coordinate{}, &paramError{Param: "lng", Msg: "must be a number"}
	}
	if !geo.IsValidLatLon(lat, lng) {
		return models.Coordinate{}, &paramError{Param: "lat/lng", Msg: "out of range"}
	}
	return models.Coordinate{Latitude: lat, Longitude: lng}, nil
}

// locationUpdate is the body of PUT /v1/sessions/:id/location.
type locationUpdate struct {
	Sequence  int64    `json:"sequence"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func decodeLocationUpdate(w http.ResponseWriter, r *http.Request) (locationUpdate, models.Coordinate, error) {
	var body locationUpdate
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return body, models.Coordinate{}, &paramError{Param: "body", Msg: err.Error()}
	}
	if body.Sequence < 1 {
		return body, models.Coordinate{}, &paramError{Param: "sequence", Msg: "must be a positive integer"}
	}
	if body.Latitude == nil || body.Longitude == nil {
		return body, models.Coordinate{}, &paramError{Param: "latitude/longitude", Msg: "both must be given"}
	}
	c := models.Coordinate{Latitude: *body.Latitude, Longitude: *body.Longitude}
	if !geo.IsValidLatLon(c.Latitude, c.Longitude) {
		return body, models.Coordinate{}, &paramError{Param: "latitude/longitude", Msg: "out of range"}
	}
	return body, c, nil
}
