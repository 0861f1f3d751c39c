package config_test

import (
	"fmt"
	"log"

	"github.com/vpremier/data-download/internal/config"
)

func ExampleLoad() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Server: %s\n", cfg.Server.Address())
	fmt.Printf("CDSE client: %s\n", cfg.CDSE.ClientID)
	fmt.Printf("Tolerance: %g\n", cfg.Dedup.Tolerance)

	// Output:
	// Server: 0.0.0.0:8080
	// CDSE client: cdse-public
	// Tolerance: 0.999
}

func ExampleCollectionRegistry_Resolve() {
	registry := config.DefaultCollections()

	c := registry.Resolve("S2MSI1C")
	fmt.Printf("%s (%s) dedup=%v\n", c.ID, c.Source, c.Deduplicate)

	// Output:
	// sentinel-2-l1c (cdse) dedup=true
}

func ExampleServerConfig_Address() {
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 9090}
	fmt.Printf("Listen on: %s\n", cfg.Address())

	// Output:
	// Listen on: 127.0.0.1:9090
}
