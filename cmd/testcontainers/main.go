package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/parkournet/recordsdb/tests/helpers"
)

const usage = `
Stand up the recordsdb MariaDB test container and keep it running until
interrupted. Environment variables (DB_IMAGE, DB_DATABASE, DB_APP_USER, ...)
come from the shell or an optional .env file.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

example
  testcontainers -f /path/to/something/.env
`

func main() {
	showHelp := flag.Bool("h", false, "show help")
	envFilename := flag.String("f", "", "path to the .env file")
	flag.Parse()

	if *showHelp {
		fmt.Print(usage)
		return
	}

	if *envFilename != "" {
		log.Printf("Loading environment variables from %s", *envFilename)
		if err := godotenv.Load(*envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)

	var tc *helpers.TestContainers
	go func() {
		var err error
		tc, err = helpers.CreateAllTestContainers(nil)
		if err != nil {
			log.Fatalf("Failed to create test containers: %v", err)
		}
		log.Printf("Database ready at %s:%s; point DB_HOST/DB_PORT at it and run the server", tc.DBHost, tc.DBPort)
	}()

	sig := <-sigs
	log.Printf("Received signal: %v, terminating test containers...", sig)
	if tc != nil {
		tc.Terminate(nil)
	}
}
