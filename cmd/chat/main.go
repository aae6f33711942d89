package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Compass server URL")
	user := flag.String("user", "cli-user", "User id for memory continuity")
	flag.Parse()

	fmt.Println("Compass CLI Chat")
	fmt.Printf("Server: %s | User: %s\n", *server, *user)
	fmt.Println("Type 'exit' or 'quit' to leave. Use @agent-id to query one specialist directly.")
	fmt.Println("Commands: /help, /agents, /history, /reload, /validate")
	fmt.Println("---")

	fetchAgents(*server)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Bye!")
			return
		}
		if strings.HasPrefix(input, "/") {
			sendCommand(*server, *user, input)
			continue
		}
		if agentID, query, ok := parseMention(input); ok {
			sendAgentQuery(*server, *user, agentID, query)
			continue
		}

		sendQuery(*server, *user, input)
	}
}

// parseMention splits "@agent-id rest of query" into its parts.
func parseMention(input string) (agentID, query string, ok bool) {
	if !strings.HasPrefix(input, "@") {
		return "", "", false
	}
	parts := strings.SplitN(input[1:], " ", 2)
	if len(parts) < 2 || parts[0] == "" {
		return "", "", false
	}
	return parts[0], strings.TrimSpace(parts[1]), true
}

func fetchAgents(server string) {
	resp, err := http.Get(server + "/api/agents")
	if err != nil {
		printError("Failed to fetch agents: %v", err)
		return
	}
	defer resp.Body.Close()

	var agents []struct {
		ID          string   `json:"id"`
		DisplayName string   `json:"display_name"`
		Description string   `json:"description"`
		Keywords    []string `json:"keywords"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		printError("Failed to parse agents: %v", err)
		return
	}
	if len(agents) == 0 {
		fmt.Println("No agents registered yet.")
		return
	}
	fmt.Println("Available specialists:")
	for _, a := range agents {
		fmt.Printf("  @%s — %s\n", a.ID, a.Description)
	}
}

func sendCommand(server, user, input string) {
	body, _ := json.Marshal(map[string]string{
		"command": input,
		"user_id": user,
	})

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(server+"/api/command", "application/json", bytes.NewReader(body))
	if err != nil {
		printError("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return
	}

	var result struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		printError("Failed to parse response: %v", err)
		return
	}
	fmt.Print(result.Content)
	if !strings.HasSuffix(result.Content, "\n") {
		fmt.Println()
	}
}

func sendQuery(server, user, query string) {
	body, _ := json.Marshal(map[string]string{
		"query":   query,
		"user_id": user,
	})

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Post(server+"/api/query", "application/json", bytes.NewReader(body))
	if err != nil {
		printError("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return
	}

	var msg struct {
		PrimaryAgent   string   `json:"primary_agent"`
		Response       string   `json:"response"`
		AgentsInvolved []string `json:"agents_involved"`
		Partial        bool     `json:"partial"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		printError("Failed to parse response: %v", err)
		return
	}

	fmt.Printf("\033[36m[%s]\033[0m %s\n", msg.PrimaryAgent, msg.Response)
	if len(msg.AgentsInvolved) > 1 {
		fmt.Printf("\033[90m(specialists: %s)\033[0m\n", strings.Join(msg.AgentsInvolved, ", "))
	}
	if msg.Partial {
		fmt.Println("\033[33m(partial result: the run hit its time budget)\033[0m")
	}
}

func sendAgentQuery(server, user, agentID, query string) {
	body, _ := json.Marshal(map[string]string{
		"query":   query,
		"user_id": user,
	})

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Post(server+"/api/agents/"+agentID+"/query", "application/json", bytes.NewReader(body))
	if err != nil {
		printError("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return
	}

	var result struct {
		AgentID  string `json:"agent_id"`
		Response string `json:"response"`
		Success  bool   `json:"success"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		printError("Failed to parse response: %v", err)
		return
	}

	fmt.Printf("\033[36m[%s]\033[0m %s\n", result.AgentID, result.Response)
	if !result.Success {
		fmt.Printf("\033[31m(%s)\033[0m\n", result.Error)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
