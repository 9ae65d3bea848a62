package engine

import (
	"context"

	"kriya/internal/domain"
)

// Seed loads example crew, clients and tasks into an empty database. Tables
// that already hold rows are left alone. Returns true if any tasks were
// inserted, in which case the task hooks have run.
func (e *Engine) Seed(ctx context.Context) (bool, error) {
	var crewCount int
	if err := e.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM crew`).Scan(&crewCount); err != nil {
		return false, err
	}
	if crewCount == 0 {
		seedCrew := []domain.CrewMember{
			{Name: "Ahmad", Role: "Designer Produk", Photo: "https://picsum.photos/seed/ahmad/200", Phone: "08123456789", Address: "Bandung", JoinDate: "2018-01-15", Performance: 95},
			{Name: "Budi", Role: "Drafter", Photo: "https://picsum.photos/seed/budi/200", Phone: "08223456789", Address: "Cimahi", JoinDate: "2022-05-20", Performance: 88},
			{Name: "Siti", Role: "Motif Artist", Photo: "https://picsum.photos/seed/siti/200", Phone: "08323456789", Address: "Bandung", JoinDate: "2025-11-10", Performance: 92},
			{Name: "Agung", Role: "Designer Produk", Photo: "https://picsum.photos/seed/agung/200", Phone: "08423456789", Address: "Sumedang", JoinDate: "2015-03-12", Performance: 98},
			{Name: "Dewi", Role: "Drafter", Photo: "https://picsum.photos/seed/dewi/200", Phone: "08523456789", Address: "Lembang", JoinDate: "2023-08-01", Performance: 85},
		}
		for _, c := range seedCrew {
			if _, err := e.Repo.InsertCrew(ctx, c); err != nil {
				return false, err
			}
		}
	}

	var clientCount int
	if err := e.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&clientCount); err != nil {
		return false, err
	}
	if clientCount == 0 {
		for _, name := range []string{"Kriya Nusantara", "G20 Indonesia", "Bank Mandiri", "PT Freeport"} {
			if _, err := e.Repo.EnsureClient(ctx, name); err != nil {
				return false, err
			}
		}
	}

	var taskCount int
	if err := e.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&taskCount); err != nil {
		return false, err
	}
	if taskCount > 0 {
		return false, nil
	}
	seedTasks := []TaskFields{
		{Title: "SPK-2024-001", ClientName: "Kriya Nusantara", ProjectName: "Plakat Logam", Description: "Desain plakat untuk internal", Status: domain.StatusToDo, Priority: domain.PriorityMedium, Category: domain.CategoryProduk, Stage: "Inbox", Assignee: "Ahmad", Deadline: "2024-03-01"},
		{Title: "SPD-2024-002", ClientName: "Bank Mandiri", ProjectName: "Souvenir Corporate", Description: "Pembuatan motif batik mandiri", Status: domain.StatusToDo, Priority: domain.PriorityHigh, Category: domain.CategoryMotif, Stage: "Inbox", Assignee: "Siti", Deadline: "2024-03-05"},
		{Title: "SPK-2024-003", ClientName: "G20 Indonesia", ProjectName: "Trofi Utama", Description: "Proses modeling 3D trofi", Status: domain.StatusInProgress, Priority: domain.PriorityUrgent, Category: domain.CategoryProduk, Stage: "Model", Assignee: "Agung", Deadline: "2024-02-28"},
		{Title: "SPK-2024-004", ClientName: "PT Freeport", ProjectName: "Miniatur Tambang", Description: "Pengerjaan detail teknis", Status: domain.StatusInProgress, Priority: domain.PriorityHigh, Category: domain.CategoryProduk, Stage: "Pola", Assignee: "Budi", Deadline: "2024-03-10"},
		{Title: "SPK-2024-005", ClientName: "Kriya Nusantara", ProjectName: "Wall Art", Description: "Sketsa motif flora", Status: domain.StatusInProgress, Priority: domain.PriorityMedium, Category: domain.CategoryMotif, Stage: "Motif", Assignee: "Siti", Deadline: "2024-03-15"},
		{Title: "SPK-2023-099", ClientName: "G20 Indonesia", ProjectName: "Cinderamata", Description: "Selesai kirim", Status: domain.StatusDone, Priority: domain.PriorityMedium, Category: domain.CategoryProduk, Stage: "Finish", Assignee: "Ahmad", Deadline: "2024-01-15"},
	}
	for _, f := range seedTasks {
		if _, err := e.CreateTask(ctx, f); err != nil {
			return false, err
		}
	}
	return true, nil
}
