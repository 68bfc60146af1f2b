// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	password := strings.TrimSpace(os.Getenv("AIRQ_PASSWORD"))
	host := strings.TrimSpace(os.Getenv("AIRQ_HOST"))
	sensors := strings.TrimSpace(os.Getenv("AIRQ_SENSORS"))
	sensorsFile := strings.TrimSpace(os.Getenv("SENSORS_FILE"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	tgToken := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	tgChat := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))
	slack := strings.TrimSpace(os.Getenv("SLACK_WEBHOOK"))

	if sensors == "" && sensorsFile == "" {
		fail("no sensors configured; set AIRQ_SENSORS or SENSORS_FILE.")
	}
	if sensorsFile != "" {
		if _, err := os.Stat(sensorsFile); err != nil {
			fail("SENSORS_FILE is set but unreadable: " + err.Error())
		}
		ok("SENSORS_FILE=" + sensorsFile)
	}
	if sensors != "" {
		if strings.Contains(sensors, " ") {
			warn("AIRQ_SENSORS contains spaces; use comma-separated paths, e.g. /livingroom,/bedroom")
		}
		if host == "" {
			fail("AIRQ_SENSORS is set but AIRQ_HOST is empty (nothing to connect to).")
		}
		if password == "" {
			fail("AIRQ_PASSWORD is empty (payloads cannot be decrypted).")
		}
		ok("AIRQ_HOST=" + host)
	}

	if db == "" {
		warn("DATABASE_URL empty — measurements stay in memory and are lost on restart.")
	} else {
		ok("DATABASE_URL present")
	}

	if tgToken == "" && slack == "" {
		warn("no notification channel configured — alerts will only be logged.")
	}
	if tgToken != "" && tgChat == "" {
		fail("TELEGRAM_BOT_TOKEN is set but TELEGRAM_CHAT_ID is empty.")
	}
	if tgToken != "" && tgChat != "" {
		ok("Telegram configured")
	}
	if slack != "" {
		ok("Slack webhook configured")
	}

	ok("preflight passed")
}
