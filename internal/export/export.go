package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reservas/internal/domain"
	"reservas/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Reservas"

// Exporter renders reservation listings as Excel workbooks.
type Exporter struct {
	dir    string
	rooms  domain.RoomDirectory
	logger *zerolog.Logger
}

func NewExporter(dir string, rooms domain.RoomDirectory, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, rooms: rooms, logger: logger}
}

// Build renders the reservations into a workbook. The caller owns the file
// and must Close it.
func (e *Exporter) Build(reservations []*models.Reservation) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Sala", "Responsável", "Disciplina", "Início", "Fim",
		"Participantes", "Status", "Criado em",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, r := range reservations {
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), r.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), e.roomName(r.RoomID))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), r.OwnerID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), r.DisciplineID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), r.Start.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), r.End.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), strings.Join(r.Participants, ", "))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), r.Status)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), r.CreatedAt.Format("02.01.2006 15:04"))
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "D", 20)
	_ = f.SetColWidth(sheetName, "E", "F", 18)
	_ = f.SetColWidth(sheetName, "G", "G", 30)
	_ = f.SetColWidth(sheetName, "H", "I", 14)

	_ = f.DeleteSheet("Sheet1")

	return f, nil
}

// WriteReservations builds the workbook and saves it under the export
// directory. Returns the file path.
func (e *Exporter) WriteReservations(reservations []*models.Reservation) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f, err := e.Build(reservations)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("reservas_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) roomName(roomID string) string {
	if e.rooms == nil {
		return roomID
	}
	if room, ok := e.rooms.GetRoom(roomID); ok && room.Name != "" {
		return room.Name
	}
	return roomID
}
