package ecs

// StorageStats is a point-in-time summary of a Storage, used by debug panels
// and the tick benchmark report.
type StorageStats struct {
	ArchetypeCount     int
	TotalEntityCount   int
	SingletonCount     int
	ArchetypeBreakdown []ArchetypeStats
	SingletonTypes     []string
}

type ArchetypeStats struct {
	ID             uint32
	ComponentTypes []string
	EntityCount    int
}

// CollectStats walks the archetypes and the context store. Archetypes that
// currently hold no entities are left out of the breakdown and the count.
func (s *Storage) CollectStats() StorageStats {
	stats := StorageStats{
		TotalEntityCount: s.alive,
		SingletonCount:   len(s.singletons),
	}

	for _, archetype := range s.archetypes {
		if archetype.Len() == 0 {
			continue
		}
		names := make([]string, len(archetype.types))
		for i, t := range archetype.types {
			names[i] = t.String()
		}
		stats.ArchetypeBreakdown = append(stats.ArchetypeBreakdown, ArchetypeStats{
			ID:             archetype.id,
			ComponentTypes: names,
			EntityCount:    archetype.Len(),
		})
	}
	stats.ArchetypeCount = len(stats.ArchetypeBreakdown)

	for _, t := range s.singletonOrder {
		stats.SingletonTypes = append(stats.SingletonTypes, t.String())
	}
	return stats
}
