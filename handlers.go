package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// server bundles the long-lived shared resources behind the HTTP handlers.
// The db pool is opened once at startup and shared read-only by all report
// requests; cache may be nil when Redis is unavailable.
type server struct {
	db    *sql.DB
	cache *redis.Client
	log   zerolog.Logger
}

// healthCheck handles the health check endpoint
func (s *server) healthCheck(c *gin.Context) {
	if err := s.db.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "receipt-analytics",
	})
}

// reportHandler serves one canned report. Failures are surfaced per request
// and never take the process down.
func (s *server) reportHandler(def reportDef) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := runReport(s.db, def)
		if err != nil {
			s.log.Error().Err(err).Str("report", def.Slug).Msg("report query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

// searchItems handles free-text item search. A too-short query is not an
// error: it answers 200 with an empty list.
func (s *server) searchItems(c *gin.Context) {
	results, err := searchReceiptItems(s.db, s.log, c.Query("q"))
	if err != nil {
		s.log.Error().Err(err).Msg("item search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, results)
}

// getData lists users with optional Redis caching
func (s *server) getData(c *gin.Context) {
	ctx := context.Background()

	// Try to get from cache
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, "users").Result()
		if err == nil {
			var users []User
			if err := json.Unmarshal([]byte(cached), &users); err == nil {
				c.JSON(http.StatusOK, gin.H{"message": "Data from PostgreSQL", "users": users})
				return
			}
		}
	}

	rows, err := s.db.Query(`
		SELECT id::text, name, email,
		       to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS')
		FROM users
		ORDER BY created_at DESC, id`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer rows.Close()

	// ensure empty array ([]) instead of null when no rows
	users := make([]User, 0)

	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Cache for 60 seconds
	if s.cache != nil {
		if data, err := json.Marshal(users); err == nil {
			s.cache.SetEx(ctx, "users", data, 60*time.Second)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Data from PostgreSQL", "users": users})
}

// createUser creates a new user
func (s *server) createUser(c *gin.Context) {
	var u User
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u.ID = uuid.NewString()
	err := s.db.QueryRow(`
		INSERT INTO users (id, name, email)
		VALUES ($1, $2, $3)
		RETURNING to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS')`,
		u.ID, u.Name, u.Email,
	).Scan(&u.CreatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Invalidate cache
	if s.cache != nil {
		s.cache.Del(context.Background(), "users")
	}

	c.JSON(http.StatusCreated, u)
}
