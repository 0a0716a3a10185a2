// Command inspector dumps the persisted room records of a syncpad database
// as a table. Read-only; safe to run against a live data directory copy.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"syncpad/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

const roomKeyPrefix = "room:"

func main() {
	dbPath := flag.String("db", "./data", "Path to badger DB")
	textPreview := flag.Int("preview", 40, "Max characters of text to display")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room", "Members", "Created", "Updated", "Text"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(roomKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			roomID := strings.TrimPrefix(string(item.Key()), roomKeyPrefix)

			err := item.Value(func(v []byte) error {
				var record domain.DurableRecord
				if err := json.Unmarshal(v, &record); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				preview := record.Text
				if len(preview) > *textPreview {
					preview = preview[:*textPreview] + "..."
				}
				table.Append([]string{
					roomID,
					memberList(record),
					record.CreatedAt.Format("2006-01-02 15:04:05"),
					record.LastUpdatedAt.Format("2006-01-02 15:04:05"),
					preview,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while scanning rooms: ", err)
	}

	table.Render()
}

func memberList(record domain.DurableRecord) string {
	if len(record.Members) == 0 {
		return "-"
	}
	ids := make([]string, 0, len(record.Members))
	for id := range record.Members {
		ids = append(ids, string(id))
	}
	return fmt.Sprintf("%d (%s)", len(ids), strings.Join(ids, ", "))
}
