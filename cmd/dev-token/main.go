package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/service"
	"golang.org/x/term"
)

// dev-token mints a student token signed like the exam API's, for poking at
// a local server with curl or a WebSocket client.
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Issue Development Student Token ===")

	studentID, ok := promptInt(reader, "Enter Student ID: ")
	if !ok {
		return
	}
	classID, ok := promptInt(reader, "Enter Class ID: ")
	if !ok {
		return
	}

	// An empty secret keeps JWT_SECRET from the environment.
	fmt.Print("Enter JWT Secret (empty uses JWT_SECRET): ")
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading secret")
		return
	}
	if s := strings.TrimSpace(string(secret)); s != "" {
		cfg.JWTSecret = s
	}

	fmt.Print("Token TTL in hours [8]: ")
	ttlHours := 8
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n <= 0 {
			fmt.Println("Error: TTL must be a positive number")
			return
		}
		ttlHours = n
	}

	// ─── Issue Token ───────────────────────────────────────────────────
	token, err := service.NewAuthService(cfg).IssueStudentToken(studentID, classID, time.Duration(ttlHours)*time.Hour)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println()
	fmt.Println(token)
}

func promptInt(reader *bufio.Reader, label string) (int, bool) {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n <= 0 {
		fmt.Println("Error: a positive number is required")
		return 0, false
	}
	return n, true
}
