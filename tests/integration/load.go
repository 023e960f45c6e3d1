package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	baseURL         = "http://localhost:8080"
	numAccounts     = 100        // Number of accounts to provision
	numTransactions = 10000      // Total number of transactions
	maxConcurrency  = 200        // Maximum number of concurrent requests
	initialBalance  = 10000      // Initial deposit for each account
	maxAmount       = 1000       // Maximum transaction amount
	successColor    = "\033[32m" // Green
	errorColor      = "\033[31m" // Red
	infoColor       = "\033[34m" // Blue
	resetColor      = "\033[0m"  // Reset color
)

type account struct {
	AccountNumber string `json:"account_number"`
	Currency      string `json:"currency"`
	AccountType   string `json:"account_type"`
}

type openAccountResponse struct {
	Created bool    `json:"created"`
	Account account `json:"account"`
}

type transactionResponse struct {
	Transaction struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"transaction"`
}

func main() {
	rand.Seed(time.Now().UnixNano())

	fmt.Printf("%sstarting a heavy load test with %d accounts and %d transactions%s\n",
		infoColor, numAccounts, numTransactions, resetColor)

	// Provision accounts and fund them
	accounts := createAccounts(numAccounts)
	fmt.Printf("%sProvisioned %d accounts%s\n", successColor, len(accounts), resetColor)

	// Create semaphore for limiting concurrency
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	// Track performance
	startTime := time.Now()
	successCount := 0
	failedCount := 0
	errorCount := 0
	var successMutex sync.Mutex

	fmt.Printf("%slaunching %d transactions with max concurrency of %d%s\n",
		infoColor, numTransactions, maxConcurrency, resetColor)

	for i := 0; i < numTransactions; i++ {
		wg.Add(1)
		sem <- struct{}{} // Acquire semaphore

		go func(txNum int) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore

			sender := accounts[rand.Intn(len(accounts))]
			receiver := accounts[rand.Intn(len(accounts))]
			amount := float64(rand.Intn(maxAmount)) + 1

			payload := map[string]interface{}{
				"amount": amount,
			}

			// mix deposits, withdrawals and transfers
			switch rand.Intn(3) {
			case 0:
				payload["transaction_type"] = "deposit"
				payload["receiver_account"] = receiver.AccountNumber
			case 1:
				payload["transaction_type"] = "withdrawal"
				payload["sender_account"] = sender.AccountNumber
			default:
				if sender.AccountNumber == receiver.AccountNumber {
					payload["transaction_type"] = "deposit"
					payload["receiver_account"] = receiver.AccountNumber
				} else {
					payload["transaction_type"] = "transfer"
					payload["sender_account"] = sender.AccountNumber
					payload["receiver_account"] = receiver.AccountNumber
				}
			}

			status, err := postTransaction(payload)
			successMutex.Lock()
			defer successMutex.Unlock()
			switch {
			case err != nil:
				errorCount++
				if errorCount <= 10 {
					fmt.Printf("%stransaction %d failed: %v%s\n", errorColor, txNum, err, resetColor)
				}
			case status == "failed":
				failedCount++ // insufficient funds, recorded as a failed transaction
			default:
				successCount++
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(startTime)

	fmt.Printf("%scompleted: %d, failed (insufficient funds): %d, errors: %d%s\n",
		successColor, successCount, failedCount, errorCount, resetColor)
	fmt.Printf("%stotal time: %s (%.2f tx/sec)%s\n",
		infoColor, elapsed, float64(numTransactions)/elapsed.Seconds(), resetColor)
}

func createAccounts(n int) []account {
	accounts := make([]account, 0, n)

	for i := 0; i < n; i++ {
		body, _ := json.Marshal(map[string]interface{}{
			"user_id":      uuid.New().String(),
			"currency":     "naira",
			"account_type": "savings",
		})

		resp, err := http.Post(baseURL+"/accounts", "application/json", bytes.NewBuffer(body))
		if err != nil {
			fmt.Printf("%sfailed to open account %d: %v%s\n", errorColor, i, err, resetColor)
			continue
		}

		data, _ := ioutil.ReadAll(resp.Body)
		resp.Body.Close()

		var opened openAccountResponse
		if err := json.Unmarshal(data, &opened); err != nil {
			fmt.Printf("%sfailed to decode account %d: %v%s\n", errorColor, i, err, resetColor)
			continue
		}

		// fund the account so withdrawals have something to take
		_, err = postTransaction(map[string]interface{}{
			"transaction_type": "deposit",
			"amount":           initialBalance,
			"receiver_account": opened.Account.AccountNumber,
		})
		if err != nil {
			fmt.Printf("%sfailed to fund account %d: %v%s\n", errorColor, i, err, resetColor)
		}

		accounts = append(accounts, opened.Account)
	}
	return accounts
}

func postTransaction(payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	resp, err := http.Post(baseURL+"/transactions", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}

	var tx transactionResponse
	if err := json.Unmarshal(data, &tx); err != nil {
		return "", err
	}
	return tx.Transaction.Status, nil
}
