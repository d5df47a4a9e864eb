package main

import (
	"context"
	"log"

	"ragchat-console/internal/devserver"
	"ragchat-console/internal/tracer"
)

func main() {
	shutdownTracer := tracer.InitTracer("ragchat-devserver")
	defer shutdownTracer(context.Background())

	srv := devserver.New()
	log.Fatal(srv.Run())
}
