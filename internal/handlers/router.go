package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/DoSvEinTe/proyecto-flota/internal/config"
	"github.com/DoSvEinTe/proyecto-flota/internal/middleware"
	"github.com/DoSvEinTe/proyecto-flota/pkg/jwt"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Router groups everything needed to build the HTTP API
type Router struct {
	Config      *config.Config
	JWT         *jwt.Service
	DB          Pinger
	Version     string
	Logger      *logrus.Logger
	Places      *PlaceHandler
	Buses       *BusHandler
	Drivers     *DriverHandler
	Passengers  *PassengerHandler
	Maintenance *MaintenanceHandler
	Trips       *TripHandler
	Costs       *CostRecordHandler
	Reports     *ReportHandler
	Admin       *AdminHandler
}

// Engine builds the gin engine with every route of the API
func (r *Router) Engine() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	if r.Config.Server.EnableRequestLog {
		router.Use(middleware.RequestLogger(r.Logger))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     r.Config.CORS.AllowedOrigins,
		AllowMethods:     r.Config.CORS.AllowedMethods,
		AllowHeaders:     r.Config.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", r.healthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(r.JWT, r.Logger))
	{
		places := v1.Group("/places")
		{
			places.GET("", r.Places.ListPlaces)
			places.POST("", r.Places.CreatePlace)
			places.GET("/:id", r.Places.GetPlace)
			places.PUT("/:id", r.Places.UpdatePlace)
			places.DELETE("/:id", r.Places.DeletePlace)
		}

		buses := v1.Group("/buses")
		{
			buses.GET("", r.Buses.GetAllBuses)
			buses.POST("", r.Buses.CreateBus)
			buses.GET("/:id", r.Buses.GetBusByID)
			buses.PUT("/:id", r.Buses.UpdateBus)
			buses.DELETE("/:id", r.Buses.DeleteBus)
			buses.GET("/:id/documents", r.Buses.ListDocuments)
			buses.POST("/:id/documents", r.Buses.CreateDocument)
		}

		documents := v1.Group("/documents")
		{
			documents.GET("/expiring", r.Buses.ListExpiringDocuments)
			documents.PUT("/:id", r.Buses.UpdateDocument)
			documents.DELETE("/:id", r.Buses.DeleteDocument)
		}

		drivers := v1.Group("/drivers")
		{
			drivers.GET("", r.Drivers.ListDrivers)
			drivers.POST("", r.Drivers.CreateDriver)
			drivers.GET("/:id", r.Drivers.GetDriver)
			drivers.PUT("/:id", r.Drivers.UpdateDriver)
			drivers.DELETE("/:id", r.Drivers.DeleteDriver)
		}

		passengers := v1.Group("/passengers")
		{
			passengers.GET("", r.Passengers.ListPassengers)
			passengers.POST("", r.Passengers.CreatePassenger)
			passengers.GET("/:id", r.Passengers.GetPassenger)
			passengers.PUT("/:id", r.Passengers.UpdatePassenger)
			passengers.DELETE("/:id", r.Passengers.DeletePassenger)
		}

		maintenance := v1.Group("/maintenance")
		{
			maintenance.GET("", r.Maintenance.ListMaintenance)
			maintenance.POST("", r.Maintenance.CreateMaintenance)
			maintenance.GET("/:id", r.Maintenance.GetMaintenance)
			maintenance.PUT("/:id", r.Maintenance.UpdateMaintenance)
			maintenance.DELETE("/:id", r.Maintenance.DeleteMaintenance)
		}

		trips := v1.Group("/trips")
		{
			trips.GET("", r.Trips.ListTrips)
			trips.POST("", r.Trips.CreateTrip)
			trips.GET("/:id", r.Trips.GetTrip)
			trips.PUT("/:id", r.Trips.UpdateTrip)
			trips.DELETE("/:id", r.Trips.DeleteTrip)
			trips.PATCH("/:id/status", r.Trips.UpdateTripStatus)
			trips.POST("/:id/distance", r.Trips.RefreshDistance)
			trips.GET("/:id/passengers", r.Trips.ListTripPassengers)
			trips.POST("/:id/passengers", r.Trips.AddTripPassenger)
			trips.PUT("/:id/passengers/:passengerId", r.Trips.UpdateTripPassenger)
			trips.DELETE("/:id/passengers/:passengerId", r.Trips.RemoveTripPassenger)
			trips.POST("/:id/cost-record", r.Trips.StartCostRecord)
			trips.POST("/:id/driver-form", r.Trips.SendDriverForm)
		}

		costs := v1.Group("/cost-records")
		{
			costs.GET("", r.Costs.ListCostRecords)
			costs.GET("/:id", r.Costs.GetCostRecord)
			costs.DELETE("/:id", r.Costs.DeleteCostRecord)
			costs.POST("/:id/recalculate", r.Costs.Recalculate)
			costs.GET("/:id/report", r.Costs.GetCostReport)
			costs.GET("/:id/report.pdf", r.Costs.DownloadCostReport)

			workflow := costs.Group("/:id/workflow")
			{
				workflow.PUT("/initial-odometer", r.Costs.SetInitialOdometer)
				workflow.POST("/maintenance", r.Costs.RecordMaintenance)
				workflow.POST("/maintenance/skip", r.Costs.SkipMaintenance)
				workflow.POST("/tolls", r.Costs.RecordTolls)
				workflow.POST("/tolls/skip", r.Costs.SkipTolls)
				workflow.POST("/fuel-stops", r.Costs.RecordFuelStops)
				workflow.POST("/fuel-stops/skip", r.Costs.SkipFuelStops)
				workflow.PUT("/final-odometer", r.Costs.SetFinalOdometer)
			}

			costs.GET("/:id/fuel-stops", r.Costs.ListFuelStops)
			costs.POST("/:id/fuel-stops", r.Costs.AddFuelStop)
			costs.GET("/:id/tolls", r.Costs.ListTolls)
			costs.POST("/:id/tolls", r.Costs.AddToll)
			costs.PUT("/:id/maintenance", r.Costs.SetMaintenance)
			costs.PUT("/:id/other-costs", r.Costs.SetOtherCosts)
		}

		v1.PUT("/fuel-stops/:id", r.Costs.UpdateFuelStop)
		v1.DELETE("/fuel-stops/:id", r.Costs.RemoveFuelStop)
		v1.POST("/fuel-stops/:id/receipt", r.Costs.UploadFuelStopReceipt)
		v1.DELETE("/tolls/:id", r.Costs.RemoveToll)
		v1.POST("/tolls/:id/receipt", r.Costs.UploadTollReceipt)

		v1.GET("/reports/costs/summary", r.Reports.GetCostSummary)

		admin := v1.Group("/admin")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.POST("/trips/reconcile-links", r.Admin.ReconcileTripLinks)
			admin.POST("/trips/sync-status", r.Admin.SyncTripStatus)
		}
	}

	return router
}

func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := r.DB.PingContext(ctx); err != nil {
		r.Logger.WithError(err).Warn("Health check: database unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "healthy",
		"version":   r.Version,
		"timestamp": time.Now().Unix(),
	})
}
