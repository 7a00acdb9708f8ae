package models

// PrepArea routes an order item to the display that prepares it
type PrepArea string

const (
	PrepAreaKitchen PrepArea = "kitchen"
	PrepAreaBar     PrepArea = "bar"
	PrepAreaBoth    PrepArea = "both"
)

// MenuItemStatus marks whether a menu item can currently be ordered
type MenuItemStatus string

const (
	MenuItemAvailable   MenuItemStatus = "available"
	MenuItemUnavailable MenuItemStatus = "unavailable"
)

// MenuItem is the menu entry an order item references. StockQuantity is nil
// for items whose stock is not tracked.
type MenuItem struct {
	ID                int            `json:"id,omitempty" db:"id"`
	CategoryID        *int           `json:"category_id,omitempty" db:"category_id"`
	Name              string         `json:"name" db:"name"`
	Price             float64        `json:"price" db:"price"`
	PrepArea          PrepArea       `json:"prep_area" db:"prep_area"`
	PrepTimeMinutes   int            `json:"prep_time_minutes" db:"prep_time_minutes"`
	Status            MenuItemStatus `json:"status" db:"status"`
	StockQuantity     *int           `json:"stock_quantity,omitempty" db:"stock_quantity"`
	Unit              string         `json:"unit" db:"unit"`
	LowStockThreshold int            `json:"low_stock_threshold" db:"low_stock_threshold"`
}

// TracksStock reports whether stock accounting applies to this item.
func (m *MenuItem) TracksStock() bool {
	return m.StockQuantity != nil
}

// IsAvailable reports whether the item can be ordered right now.
func (m *MenuItem) IsAvailable() bool {
	return m.Status == MenuItemAvailable
}

// TableStatus represents the occupancy state of a dining table
type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
)

// Table is a dining table orders can be placed against
type Table struct {
	ID       int         `json:"id,omitempty" db:"id"`
	Name     string      `json:"name" db:"name"`
	Capacity int         `json:"capacity" db:"capacity"`
	Status   TableStatus `json:"status" db:"status"`
}

// StaffRole determines what a staff member may do; managers additionally
// receive low-stock alerts.
type StaffRole string

const (
	RoleAdmin     StaffRole = "admin"
	RoleManager   StaffRole = "manager"
	RoleWaiter    StaffRole = "waiter"
	RoleChef      StaffRole = "chef"
	RoleBartender StaffRole = "bartender"
)

// Staff is a staff member acting on orders and inventory
type Staff struct {
	ID     int       `json:"id,omitempty" db:"id"`
	Name   string    `json:"name" db:"name"`
	Role   StaffRole `json:"role" db:"role"`
	Status string    `json:"status" db:"status"`
}
