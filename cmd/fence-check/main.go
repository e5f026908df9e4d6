package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/CampusCare/CC-Backend/internal/geo"
	"github.com/joho/godotenv"
)

// Evaluates a coordinate against the configured geofence gate. Handy for
// checking CAMPUS_* and GEOFENCE_* settings before a deploy.
func main() {
	lat := flag.Float64("lat", 0, "latitude to test")
	lng := flag.Float64("lng", 0, "longitude to test")
	flag.Parse()

	godotenv.Load(".env.local")

	gate, err := geo.NewGate(geo.LoadFromEnv())
	if err != nil {
		log.Fatalf("gate config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	res, err := gate.Contains(ctx, geo.Coordinate{Latitude: *lat, Longitude: *lng})
	if err != nil {
		log.Fatalf("gate error: %v", err)
	}

	if res.DistanceMeters != nil {
		fmt.Printf("strategy=%s inside=%v distance=%.1fm\n", gate.Name(), res.Inside, *res.DistanceMeters)
	} else {
		fmt.Printf("strategy=%s inside=%v\n", gate.Name(), res.Inside)
	}
}
