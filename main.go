package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"hutieu-backend/internal/config"
	"hutieu-backend/internal/database"
	"hutieu-backend/internal/handlers"
	"hutieu-backend/internal/middleware"
	"hutieu-backend/internal/revalidate"
	"hutieu-backend/internal/storage"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("product index warning: %v", err)
	}
	if err := database.EnsureImageIndexes(db); err != nil {
		log.Printf("image index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}
	if err := database.EnsureAdminIndexes(db); err != nil {
		log.Printf("admin index warning: %v", err)
	}
	if err := database.SeedOrderCounter(db); err != nil {
		log.Fatal("order counter seed failed: ", err)
	}

	orderSeq := database.NewOrderSequence(db)
	store := storage.NewDisk(config.AppEnv.UploadDir, config.AppEnv.PublicBaseURL)
	rev := revalidate.NewClient(config.AppEnv.RevalidateURL, config.AppEnv.RevalidateSecret)

	r := gin.Default()
	r.Static("/public", "./public")

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/products", handlers.GetProducts(db, store))

	r.POST("/orders", handlers.CreateOrder(db, orderSeq))
	r.GET("/orders", handlers.GetOrders(db))
	r.PUT("/orders", handlers.UpdateOrderStatus(db))

	r.POST("/admin/login", handlers.AdminLogin(
		db,
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	))
	r.POST("/admin/refresh", handlers.AdminRefresh(
		db,
		config.AppEnv.JWTSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	))
	r.POST("/admin/logout", handlers.AdminLogout(db))

	admin := r.Group("/admin")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.POST("/upload-image", handlers.UploadImage(db, store, rev))
		admin.PUT("/update-image", handlers.UpdateImage(db))
		admin.PUT("/set-primary-image", handlers.SetPrimaryImage(db, rev))
		admin.DELETE("/delete-image", handlers.DeleteImage(db, store, rev))

		api := admin.Group("/api")
		{
			api.GET("/me", func(c *gin.Context) {
				c.JSON(200, gin.H{"ok": true, "email": c.GetString(middleware.ContextAdminEmail)})
			})

			api.GET("/products", handlers.GetAllProducts(db, store))
			api.POST("/products", handlers.CreateProduct(db, rev))
			api.PUT("/products/:id", handlers.UpdateProduct(db, rev))
			api.DELETE("/products/:id", handlers.DeleteProduct(db, store, rev))
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
