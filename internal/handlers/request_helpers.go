package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// handlePanic keeps a panicking handler from tearing down the request
// without a response. Deferred at the top of every handler.
func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] recovered from panic: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Client().Ping(checkCtx, readpref.Primary())
}

// respondWithError is for client-facing failures where the message itself is
// the explanation (validation, not-found, auth).
func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondUpstreamError is for database and storage failures: the cause stays
// in the server log, the caller only sees the generic message.
func respondUpstreamError(c *gin.Context, route string, message string, err error) {
	log.Printf("[%s] %s: %v", route, message, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": message})
}
