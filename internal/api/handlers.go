package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kopf/radiostats/internal/models"
)

// GetStations lists all stations with their crawl state.
func (s *Server) GetStations(c *gin.Context) {
	var stations []models.Station
	if err := s.db.DB.Order("name").Find(&stations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stations})
}

// GetPlays returns a paginated play log.
// Query Params: page (default 1), limit (default 50), station (name),
// from / to (YYYY-MM-DD, on UTC time)
func (s *Server) GetPlays(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := (page - 1) * limit

	query := s.db.DB.Model(&models.Play{}).
		Joins("Station").
		Joins("Song")

	if station := c.Query("station"); station != "" {
		query = query.Where("\"Station\".name = ?", station)
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			query = query.Where("plays.time >= ?", t)
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			query = query.Where("plays.time < ?", t.AddDate(0, 0, 1))
		}
	}

	var total int64
	query.Count(&total)

	var plays []models.Play
	result := query.Order("plays.time desc").Limit(limit).Offset(offset).Find(&plays)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": plays,
		"meta": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetTopSongs returns the most-played songs, optionally per station.
// Query Params: limit (default 20), station (name)
func (s *Server) GetTopSongs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 200 {
		limit = 20
	}

	type row struct {
		Artist    string `json:"artist"`
		Title     string `json:"title"`
		PlayCount int64  `json:"play_count"`
	}

	query := s.db.DB.Model(&models.Play{}).
		Select("songs.artist, songs.title, COUNT(plays.id) AS play_count").
		Joins("JOIN songs ON songs.id = plays.song_id").
		Group("songs.artist, songs.title").
		Order("play_count DESC").
		Limit(limit)

	if station := c.Query("station"); station != "" {
		query = query.
			Joins("JOIN stations ON stations.id = plays.station_id").
			Where("stations.name = ?", station)
	}

	var rows []row
	if err := query.Scan(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// GetStats returns basic database statistics
func (s *Server) GetStats(c *gin.Context) {
	var stationCount, songCount, normalizedCount, playCount, unsyncedCount int64

	s.db.DB.Model(&models.Station{}).Count(&stationCount)
	s.db.DB.Model(&models.Song{}).Count(&songCount)
	s.db.DB.Model(&models.Song{}).Where("normalized_id IS NOT NULL").Count(&normalizedCount)
	s.db.DB.Model(&models.Play{}).Count(&playCount)
	s.db.DB.Model(&models.Play{}).Where("synced = ?", false).Count(&unsyncedCount)

	c.JSON(http.StatusOK, gin.H{
		"stations":         stationCount,
		"songs":            songCount,
		"songs_normalized": normalizedCount,
		"plays":            playCount,
		"plays_unsynced":   unsyncedCount,
	})
}
