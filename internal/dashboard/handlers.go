package dashboard

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard frontend is served from a different origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterRoutes wires the dashboard REST and WebSocket endpoints.
func RegisterRoutes(router *gin.Engine, ds *Dataset, hub *Hub, logger *zap.Logger) {
	api := router.Group("/api")

	api.GET("/zones", func(c *gin.Context) {
		c.JSON(http.StatusOK, ds.Zones())
	})

	api.GET("/zones/:id", func(c *gin.Context) {
		zone, ok := ds.Zone(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "zone not found"})
			return
		}
		c.JSON(http.StatusOK, zone)
	})

	api.GET("/flights", func(c *gin.Context) {
		limit := queryInt(c, "limit", 20)
		c.JSON(http.StatusOK, ds.Flights(limit, c.Query("zone_id")))
	})

	api.GET("/flights/:id", func(c *gin.Context) {
		flight, ok := ds.Flight(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "flight not found"})
			return
		}
		c.JSON(http.StatusOK, flight)
	})

	api.GET("/buildings", func(c *gin.Context) {
		limit := queryInt(c, "limit", 100)
		level := DamageLevel(c.Query("damage_level"))
		c.JSON(http.StatusOK, ds.Buildings(level, c.Query("zone_id"), limit))
	})

	api.GET("/survivors", func(c *gin.Context) {
		limit := queryInt(c, "limit", 50)
		status := DetectionStatus(c.Query("status"))
		c.JSON(http.StatusOK, ds.Survivors(status, c.Query("zone_id"), limit))
	})

	api.GET("/analytics/summary", func(c *gin.Context) {
		c.JSON(http.StatusOK, ds.Analytics())
	})

	api.POST("/simulate/new-flight", func(c *gin.Context) {
		flight := ds.SimulateFlight()
		hub.Broadcast(Message{Type: "flight_update", Data: flight, Timestamp: time.Now()})
		c.JSON(http.StatusOK, gin.H{"message": "New flight simulated", "flight": flight})
	})

	api.POST("/simulate/survivor-detection", func(c *gin.Context) {
		survivor := ds.SimulateSurvivor()
		hub.Broadcast(Message{Type: "new_detection", Data: survivor, Timestamp: time.Now()})
		c.JSON(http.StatusOK, gin.H{"message": "New survivor detection simulated", "survivor": survivor})
	})

	router.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		hub.serve(conn)
	})
}

// RunBroadcaster pushes a random zone or flight update to all clients
// at the configured interval until the context is cancelled.
func RunBroadcaster(ctx context.Context, ds *Dataset, hub *Hub, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hub.Broadcast(ds.RandomUpdate())
		}
	}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
