package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	// Chat turns run an LLM round-trip, no client timeout
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	color.Cyan("🚀 Starting Chat & Retrieval API Test\n")

	// 1. Create Chat Session
	color.Yellow("\n1. Create Chat Session")
	resp, body, err := sendRequest("POST", "/chat/v1/session", map[string]interface{}{})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var createSessResp map[string]interface{}
	json.Unmarshal(body, &createSessResp)
	prettyPrint(createSessResp)

	var sessionID string
	if data, ok := createSessResp["data"].(map[string]interface{}); ok {
		if id, ok := data["id"].(string); ok {
			sessionID = id
			fmt.Printf("Created Session ID: %s\n", sessionID)
		}
	}
	if sessionID == "" {
		color.Red("Aborting: failed to create session")
		os.Exit(1)
	}

	// 2. Upload a Document to the Shared Corpus
	color.Yellow("\n2. Upload Document (shared corpus)")
	docReq := map[string]interface{}{
		"title":   "Gradient Descent Primer",
		"content": "Gradient descent is an optimization algorithm. It iteratively moves parameters in the direction of steepest descent. The learning rate controls the step size. Too large a rate diverges, too small converges slowly.",
		"source":  "smoke-test",
	}
	resp, body, err = sendRequest("POST", "/document/v1", docReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var uploadResp map[string]interface{}
	json.Unmarshal(body, &uploadResp)
	prettyPrint(uploadResp)

	var documentID string
	if data, ok := uploadResp["data"].(map[string]interface{}); ok {
		if id, ok := data["id"].(string); ok {
			documentID = id
		}
	}

	// 3. Direct Retrieval Search (exercises the decision engine too)
	color.Yellow("\n3. Retrieval Search: 'What is gradient descent?'")
	searchReq := map[string]interface{}{
		"query": "What is gradient descent?",
		"top_k": 3,
	}
	resp, body, err = sendRequest("POST", "/retrieval/v1/search", searchReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var searchResp map[string]interface{}
	json.Unmarshal(body, &searchResp)
	prettyPrint(searchResp)

	// 4. Greeting Turn (should skip retrieval)
	color.Yellow("\n4. Send Chat: 'hi' (greeting, no retrieval expected)")
	chatReq := map[string]interface{}{
		"chat_session_id": sessionID,
		"message":         "hi",
	}
	resp, body, err = sendRequest("POST", "/chat/v1/send", chatReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var greetResp map[string]interface{}
	json.Unmarshal(body, &greetResp)
	prettyPrint(greetResp)

	// 5. Question Turn (should retrieve from the uploaded document)
	color.Yellow("\n5. Send Chat: 'What does the learning rate control?'")
	chatReq = map[string]interface{}{
		"chat_session_id": sessionID,
		"message":         "What does the learning rate control?",
	}
	resp, body, err = sendRequest("POST", "/chat/v1/send", chatReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var askResp map[string]interface{}
	json.Unmarshal(body, &askResp)
	prettyPrint(askResp)

	// 6. Chat History
	color.Yellow("\n6. Get Chat History")
	resp, body, err = sendRequest("GET", "/chat/v1/session/"+sessionID+"/history", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var historyResp map[string]interface{}
	json.Unmarshal(body, &historyResp)
	prettyPrint(historyResp)

	// 7. Cleanup
	color.Yellow("\n7. Cleanup: Delete Document and Session")
	if documentID != "" {
		resp, _, err = sendRequest("DELETE", "/document/v1", map[string]interface{}{"document_id": documentID})
		if err != nil {
			color.Red("Delete document failed: %v", err)
		} else {
			color.Green("Delete document: %s", resp.Status)
		}
	}
	resp, _, err = sendRequest("DELETE", "/chat/v1/session", map[string]interface{}{"chat_session_id": sessionID})
	if err != nil {
		color.Red("Delete session failed: %v", err)
	} else {
		color.Green("Delete session: %s", resp.Status)
	}

	color.Cyan("\n✅ Done")
}
